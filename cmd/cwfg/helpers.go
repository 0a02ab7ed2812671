package main

import (
	"os"

	"github.com/fatih/color"
)

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
