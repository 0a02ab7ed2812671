package daemon

import (
	"context"
	"fmt"
	"os"

	sddbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/sirupsen/logrus"
)

// Uninstall stops and disables the systemd unit and removes it.
func Uninstall() error {
	ctx, cancel := context.WithTimeout(context.Background(), systemdTimeout)
	defer cancel()

	conn, err := sddbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w. Are you root?", err)
	}
	defer conn.Close()

	logrus.Infof("stopping cwfg")

	err = waitJob(ctx, unitName, func(ch chan<- string) (int, error) {
		return conn.StopUnitContext(ctx, unitName, "replace", ch)
	})
	if err != nil {
		logrus.Warnf("failed to stop %s: %v", unitName, err)
	}

	if _, err := conn.DisableUnitFilesContext(ctx, []string{unitName}, false); err != nil {
		return fmt.Errorf("failed to disable %s: %w", unitName, err)
	}

	logrus.Infof("removing systemd unit")

	// if the file doesn't exist, we don't need to remove it
	_, err = os.Stat(unitPath)
	if err != nil {
		if os.IsNotExist(err) {
			return conn.ReloadContext(ctx)
		}
		return fmt.Errorf("failed to stat %s: %w", unitPath, err)
	}

	err = os.Remove(unitPath)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", unitPath, err)
	}

	return conn.ReloadContext(ctx)
}
