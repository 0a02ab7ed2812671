package cw2015

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
)

// Client reads and writes CW2015 registers over I2C.
type Client struct {
	dev *i2c.Dev
}

// NewClient returns a Client talking to the chip at addr on bus.
func NewClient(bus i2c.Bus, addr uint16) *Client {
	return &Client{
		dev: &i2c.Dev{Bus: bus, Addr: addr},
	}
}

// Read reads n bytes starting at reg in a single bus transaction.
func (c *Client) Read(reg Register, n int) ([]byte, error) {
	logrus.WithFields(logrus.Fields{
		"register": reg.Name,
		"offset":   reg.Offset,
		"size":     n,
	}).Trace("Trying to read from chip")

	buf := make([]byte, n)
	if err := c.dev.Tx([]byte{reg.Offset}, buf); err != nil {
		return nil, &BusError{Op: "read", Register: reg, Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"register": reg.Name,
		"val":      buf,
	}).Trace("Read from chip succeed")

	return buf, nil
}

// ReadUint8 reads the first byte of reg.
func (c *Client) ReadUint8(reg Register) (uint8, error) {
	b, err := c.Read(reg, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadWord reads the full 16-bit word at reg. The chip sends the most significant byte first.
func (c *Client) ReadWord(reg Register) (uint16, error) {
	if reg.Width != 2 {
		return 0, &BusError{Op: "read", Register: reg, Err: fmt.Errorf("%w: %d bytes wide", ErrWidth, reg.Width)}
	}

	b, err := c.Read(reg, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Write writes a single byte to reg.
func (c *Client) Write(reg Register, val byte) error {
	logrus.WithFields(logrus.Fields{
		"register": reg.Name,
		"val":      val,
	}).Trace("Trying to write to chip")

	if err := c.dev.Tx([]byte{reg.Offset, val}, nil); err != nil {
		return &BusError{Op: "write", Register: reg, Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"register": reg.Name,
		"val":      val,
	}).Trace("Write to chip succeed")

	return nil
}
