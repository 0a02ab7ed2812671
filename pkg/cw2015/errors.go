package cw2015

import (
	"errors"
	"fmt"
)

// ErrDetached is wrapped in a BusError when a detached device is queried.
var ErrDetached = errors.New("device detached")

// ErrWidth is wrapped in a BusError when a register is read with the wrong width.
var ErrWidth = errors.New("register width mismatch")

// BusError is returned when a bus transaction with the chip fails
// (NACK, timeout, arbitration loss). It is never retried.
type BusError struct {
	Op       string
	Register Register
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("cw2015: %s %s: %v", e.Op, e.Register, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}
