package config

import "github.com/sirupsen/logrus"

type Config interface {
	// Bus is the I2C bus name or path passed to i2creg.Open.
	Bus() string
	// Address is the 7-bit I2C address of the fuel gauge.
	Address() uint16
	// BusSpeedKHz is the bus clock to set, or 0 to leave it alone.
	BusSpeedKHz() int
	AllowNonRootAccess() bool

	SetAllowNonRootAccess(bool)

	LogrusFields() logrus.Fields

	// Validate checks values that would otherwise fail at attach time.
	Validate() error

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
