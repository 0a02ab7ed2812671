package cw2015

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
)

// SettleDelay is the time the chip needs after the wake command before
// it accepts the normal mode command. It is a property of the chip.
const SettleDelay = 10 * time.Millisecond

// sleep blocks for the settle delay. Replaced in tests.
var sleep = time.Sleep

// Device is one attached CW2015. Every query reads the chip; nothing is cached.
type Device struct {
	c  *Client
	mu sync.Mutex
}

// Attach wakes the chip at addr on bus if it is asleep and logs a
// diagnostic snapshot. Any bus failure aborts the attach.
func Attach(bus i2c.Bus, addr uint16) (*Device, error) {
	d := &Device{
		c: NewClient(bus, addr),
	}

	if err := d.wake(); err != nil {
		return nil, err
	}

	if err := d.logSnapshot(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Device) wake() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	mode, err := d.c.ReadUint8(RegMode)
	if err != nil {
		return err
	}

	if mode == 0 {
		return nil
	}

	logrus.WithField("mode", mode).Debug("chip is sleeping, waking it up")

	if err := d.c.Write(RegMode, ModeWake); err != nil {
		return err
	}
	sleep(SettleDelay)
	return d.c.Write(RegMode, ModeNormal)
}

func (d *Device) logSnapshot() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	mode, err := d.c.ReadUint8(RegMode)
	if err != nil {
		return err
	}
	version, err := d.c.ReadUint8(RegVersion)
	if err != nil {
		return err
	}
	vcell, err := d.c.ReadWord(RegCellVoltage)
	if err != nil {
		return err
	}
	soc, err := d.c.ReadWord(RegStateOfCharge)
	if err != nil {
		return err
	}
	rrt, err := d.c.ReadWord(RegAlertRemainingRuntime)
	if err != nil {
		return err
	}

	state := "discharging"
	if DecodeCharging(rrt) {
		state = "charging"
	}

	logrus.WithFields(logrus.Fields{
		"version": version,
		"mode":    mode,
	}).Infof("cell %dmV charge %d%% %s", DecodeMillivolts(vcell), DecodePercent(soc), state)

	return nil
}

// Detach releases the device. The chip is left in its current mode.
func (d *Device) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.c = nil
}

func (d *Device) readWord(reg Register) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.c == nil {
		return 0, &BusError{Op: "read", Register: reg, Err: ErrDetached}
	}

	return d.c.ReadWord(reg)
}

// Millivolts returns the cell voltage in millivolts.
func (d *Device) Millivolts() (int, error) {
	w, err := d.readWord(RegCellVoltage)
	if err != nil {
		return 0, err
	}
	return DecodeMillivolts(w), nil
}

// ChargePercent returns the state of charge in whole percent.
func (d *Device) ChargePercent() (int, error) {
	w, err := d.readWord(RegStateOfCharge)
	if err != nil {
		return 0, err
	}
	return DecodePercent(w), nil
}

// RemainingMinutes returns the remaining run time in minutes, 0 if unknown.
func (d *Device) RemainingMinutes() (int, error) {
	w, err := d.readWord(RegAlertRemainingRuntime)
	if err != nil {
		return 0, err
	}
	return DecodeRemaining(w), nil
}

// Charging reports whether the battery is charging.
func (d *Device) Charging() (bool, error) {
	w, err := d.readWord(RegAlertRemainingRuntime)
	if err != nil {
		return false, err
	}
	return DecodeCharging(w), nil
}

// Reading runs every query once and returns the combined result.
func (d *Device) Reading() (*Reading, error) {
	mv, err := d.Millivolts()
	if err != nil {
		return nil, err
	}
	pct, err := d.ChargePercent()
	if err != nil {
		return nil, err
	}
	remaining, err := d.RemainingMinutes()
	if err != nil {
		return nil, err
	}
	charging, err := d.Charging()
	if err != nil {
		return nil, err
	}

	return &Reading{
		Millivolts:       mv,
		Percent:          pct,
		RemainingMinutes: remaining,
		Charging:         charging,
	}, nil
}
