package daemon

import (
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"

	"github.com/charlie0129/cwfg/pkg/config"
	"github.com/charlie0129/cwfg/pkg/cw2015"
	"github.com/charlie0129/cwfg/pkg/events"
)

// openBus opens an I2C bus by name. Replaced in tests.
var openBus = func(name string) (i2c.BusCloser, error) {
	return i2creg.Open(name)
}

var errShuttingDown = errors.New("daemon is shutting down")

// attachment holds the currently attached fuel gauge, if any.
type attachment struct {
	mu     sync.RWMutex
	bus    i2c.BusCloser
	dev    *cw2015.Device
	name   string
	addr   uint16
	closed bool
}

// device returns the attached device and a release func, or nil when
// nothing is attached. The device stays attached until release is called.
func (a *attachment) device() (*cw2015.Device, func()) {
	a.mu.RLock()
	if a.dev == nil {
		a.mu.RUnlock()
		return nil, func() {}
	}
	return a.dev, a.mu.RUnlock
}

// attach opens the configured bus and attaches the chip on it. A previously
// attached device is detached first.
func (a *attachment) attach(c config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return errShuttingDown
	}

	a.detachLocked()

	name, addr := c.Bus(), c.Address()
	fields := logrus.Fields{"bus": name, "address": addr}

	bus, err := openBus(name)
	if err != nil {
		publishDevice(events.DeviceAttached, name, addr, err)
		return pkgerrors.Wrapf(err, "failed to open i2c bus %s", name)
	}

	if khz := c.BusSpeedKHz(); khz > 0 {
		if err := bus.SetSpeed(physic.Frequency(khz) * physic.KiloHertz); err != nil {
			logrus.WithFields(fields).Warnf("failed to set bus speed to %dkHz: %v", khz, err)
		}
	}

	dev, err := cw2015.Attach(bus, addr)
	if err != nil {
		closeBus(bus)
		publishDevice(events.DeviceAttached, name, addr, err)
		return pkgerrors.Wrapf(err, "failed to attach fuel gauge at 0x%02x on %s", addr, name)
	}

	a.bus, a.dev, a.name, a.addr = bus, dev, name, addr
	logrus.WithFields(fields).Info("fuel gauge attached")
	publishDevice(events.DeviceAttached, name, addr, nil)

	return nil
}

func (a *attachment) detach() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.detachLocked()
}

// close detaches the device for good. Later attaches fail with errShuttingDown.
func (a *attachment) close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.detachLocked()
	a.closed = true
}

func (a *attachment) detachLocked() {
	if a.dev == nil {
		return
	}

	a.dev.Detach()
	closeBus(a.bus)
	logrus.WithFields(logrus.Fields{"bus": a.name, "address": a.addr}).Info("fuel gauge detached")
	publishDevice(events.DeviceDetached, a.name, a.addr, nil)

	a.bus, a.dev = nil, nil
}

func closeBus(bus i2c.BusCloser) {
	if err := bus.Close(); err != nil {
		logrus.Warnf("failed to close i2c bus %s: %v", bus, err)
	}
}

func publishDevice(name, bus string, addr uint16, err error) {
	ev := events.DeviceEvent{
		Bus:     bus,
		Address: addr,
		Ts:      time.Now().Unix(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	sseHub.Publish(name, ev)
}
