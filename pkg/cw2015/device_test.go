package cw2015

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

const addr = DefaultAddress

var errNack = errors.New("i2c: nack")

// faultyBus fails the transaction with index failAt and plays back the rest.
type faultyBus struct {
	i2ctest.Playback
	failAt int
	n      int
	events *[]string
}

func (f *faultyBus) Tx(a uint16, w, r []byte) error {
	n := f.n
	f.n++
	if n == f.failAt {
		return errNack
	}
	if f.events != nil && len(r) == 0 && len(w) == 2 {
		*f.events = append(*f.events, "write")
	}
	return f.Playback.Tx(a, w, r)
}

func newBus(failAt int, ops ...i2ctest.IO) *faultyBus {
	return &faultyBus{
		Playback: i2ctest.Playback{Ops: ops, DontPanic: true},
		failAt:   failAt,
	}
}

func fakeSleep(t *testing.T, events *[]string, slept *[]time.Duration) {
	orig := sleep
	sleep = func(d time.Duration) {
		*events = append(*events, "sleep")
		*slept = append(*slept, d)
	}
	t.Cleanup(func() { sleep = orig })
}

func snapshotOps(vcell, soc, rrt []byte) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: addr, W: []byte{0x0a}, R: []byte{0x00}},
		{Addr: addr, W: []byte{0x00}, R: []byte{0x73}},
		{Addr: addr, W: []byte{0x02}, R: vcell},
		{Addr: addr, W: []byte{0x04}, R: soc},
		{Addr: addr, W: []byte{0x06}, R: rrt},
	}
}

func TestAttachWakesSleepingChip(t *testing.T) {
	var events []string
	var slept []time.Duration
	fakeSleep(t, &events, &slept)

	ops := []i2ctest.IO{
		{Addr: addr, W: []byte{0x0a}, R: []byte{0xc0}},
		{Addr: addr, W: []byte{0x0a, 0xc0}},
		{Addr: addr, W: []byte{0x0a, 0x00}},
	}
	ops = append(ops, snapshotOps([]byte{0x0f, 0x00}, []byte{0x5a, 0x10}, []byte{0x1f, 0xff})...)
	bus := newBus(-1, ops...)
	bus.events = &events

	d, err := Attach(bus, addr)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if d == nil {
		t.Fatal("Attach() returned nil device")
	}
	if bus.Count != len(ops) {
		t.Errorf("bus transactions = %d, want %d", bus.Count, len(ops))
	}

	wantEvents := []string{"write", "sleep", "write"}
	if len(events) != len(wantEvents) {
		t.Fatalf("events = %v, want %v", events, wantEvents)
	}
	for i := range wantEvents {
		if events[i] != wantEvents[i] {
			t.Fatalf("events = %v, want %v", events, wantEvents)
		}
	}
	if slept[0] < 10*time.Millisecond {
		t.Errorf("settle delay = %v, want >= 10ms", slept[0])
	}
}

func TestAttachAwakeChipDoesNotWrite(t *testing.T) {
	var events []string
	var slept []time.Duration
	fakeSleep(t, &events, &slept)

	ops := []i2ctest.IO{
		{Addr: addr, W: []byte{0x0a}, R: []byte{0x00}},
	}
	ops = append(ops, snapshotOps([]byte{0x0f, 0x00}, []byte{0x5a, 0x10}, []byte{0x00, 0x05})...)
	bus := newBus(-1, ops...)
	bus.events = &events

	if _, err := Attach(bus, addr); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %v, want none", events)
	}
	if bus.Count != len(ops) {
		t.Errorf("bus transactions = %d, want %d", bus.Count, len(ops))
	}
}

func TestAttachFailureIsFatal(t *testing.T) {
	var events []string
	var slept []time.Duration
	fakeSleep(t, &events, &slept)

	tests := []struct {
		name   string
		failAt int
		want   Register
	}{
		{name: "mode read", failAt: 0, want: RegMode},
		{name: "wake write", failAt: 1, want: RegMode},
		{name: "normal write", failAt: 2, want: RegMode},
		{name: "version read", failAt: 4, want: RegVersion},
		{name: "runtime read", failAt: 7, want: RegAlertRemainingRuntime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			all := []i2ctest.IO{
				{Addr: addr, W: []byte{0x0a}, R: []byte{0xc0}},
				{Addr: addr, W: []byte{0x0a, 0xc0}},
				{Addr: addr, W: []byte{0x0a, 0x00}},
			}
			all = append(all, snapshotOps([]byte{0x0f, 0x00}, []byte{0x5a, 0x10}, []byte{0x1f, 0xff})...)
			// Drop the op that is replaced by the failure.
			ops := append(append([]i2ctest.IO{}, all[:tt.failAt]...), all[tt.failAt+1:]...)

			d, err := Attach(newBus(tt.failAt, ops...), addr)
			if d != nil {
				t.Error("Attach() returned a device on failure")
			}
			var be *BusError
			if !errors.As(err, &be) {
				t.Fatalf("Attach() error = %v, want *BusError", err)
			}
			if be.Register != tt.want {
				t.Errorf("BusError.Register = %v, want %v", be.Register, tt.want)
			}
			if !errors.Is(err, errNack) {
				t.Errorf("Attach() error does not wrap the transport error: %v", err)
			}
		})
	}
}

func attached(t *testing.T, ops ...i2ctest.IO) (*Device, *faultyBus) {
	t.Helper()
	boot := append([]i2ctest.IO{{Addr: addr, W: []byte{0x0a}, R: []byte{0x00}}},
		snapshotOps([]byte{0x0f, 0x00}, []byte{0x5a, 0x10}, []byte{0x1f, 0xff})...)
	bus := newBus(-1, append(boot, ops...)...)
	d, err := Attach(bus, addr)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	return d, bus
}

func TestDeviceReading(t *testing.T) {
	d, bus := attached(t,
		i2ctest.IO{Addr: addr, W: []byte{0x02}, R: []byte{0x0f, 0x00}},
		i2ctest.IO{Addr: addr, W: []byte{0x04}, R: []byte{0x5a, 0x10}},
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x1f, 0xff}},
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x1f, 0xff}},
	)

	r, err := d.Reading()
	if err != nil {
		t.Fatalf("Reading() error = %v", err)
	}
	want := Reading{Millivolts: 1170, Percent: 90, RemainingMinutes: 0, Charging: true}
	if *r != want {
		t.Errorf("Reading() = %+v, want %+v", *r, want)
	}
	if bus.Count != len(bus.Ops) {
		t.Errorf("bus transactions = %d, want %d", bus.Count, len(bus.Ops))
	}
	if got := r.Voltage(); got != 1170*physic.MilliVolt {
		t.Errorf("Voltage() = %s, want 1.17V", got)
	}
}

func TestDeviceQueriesReadEveryTime(t *testing.T) {
	d, _ := attached(t,
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x00, 0x05}},
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x1f, 0xff}},
	)

	remaining, err := d.RemainingMinutes()
	if err != nil || remaining != 5 {
		t.Fatalf("RemainingMinutes() = %v, %v, want 5, nil", remaining, err)
	}
	charging, err := d.Charging()
	if err != nil || !charging {
		t.Fatalf("Charging() = %v, %v, want true, nil", charging, err)
	}
}

func TestDeviceQueryErrorIsNotFatal(t *testing.T) {
	d, bus := attached(t,
		i2ctest.IO{Addr: addr, W: []byte{0x04}, R: []byte{0x4b, 0x00}},
	)
	bus.failAt = bus.n

	_, err := d.ChargePercent()
	var be *BusError
	if !errors.As(err, &be) {
		t.Fatalf("ChargePercent() error = %v, want *BusError", err)
	}
	if be.Register != RegStateOfCharge || be.Op != "read" {
		t.Errorf("BusError = %+v", be)
	}

	pct, err := d.ChargePercent()
	if err != nil {
		t.Fatalf("ChargePercent() after failure error = %v", err)
	}
	if pct != 75 {
		t.Errorf("ChargePercent() = %v, want 75", pct)
	}
}

func TestDeviceQueryByName(t *testing.T) {
	d, _ := attached(t,
		i2ctest.IO{Addr: addr, W: []byte{0x02}, R: []byte{0x0e, 0xd8}},
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x9f, 0xff}},
	)

	tests := []struct {
		name string
		want int
	}{
		{name: "millivolt", want: 1157},
		{name: "charging", want: 1},
	}
	for _, tt := range tests {
		got, err := d.Query(tt.name)
		if err != nil {
			t.Fatalf("Query(%q) error = %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Query(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if _, err := d.Query("temperature"); !errors.Is(err, ErrUnknownQuery) {
		t.Errorf("Query(temperature) error = %v, want ErrUnknownQuery", err)
	}
}

func TestDetachedDevice(t *testing.T) {
	d, _ := attached(t)
	d.Detach()

	if _, err := d.Millivolts(); !errors.Is(err, ErrDetached) {
		t.Errorf("Millivolts() after Detach error = %v, want ErrDetached", err)
	}
}
