package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/charlie0129/cwfg/pkg/config"
	"github.com/charlie0129/cwfg/pkg/cw2015"
	"github.com/charlie0129/cwfg/pkg/events"
)

const addr = cw2015.DefaultAddress

// attachOps is the bus traffic of attaching an awake chip.
func attachOps() []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: addr, W: []byte{0x0a}, R: []byte{0x00}},
		{Addr: addr, W: []byte{0x0a}, R: []byte{0x00}},
		{Addr: addr, W: []byte{0x00}, R: []byte{0x73}},
		{Addr: addr, W: []byte{0x02}, R: []byte{0x0f, 0x00}},
		{Addr: addr, W: []byte{0x04}, R: []byte{0x5a, 0x10}},
		{Addr: addr, W: []byte{0x06}, R: []byte{0x1f, 0xff}},
	}
}

func setup(t *testing.T, ops ...i2ctest.IO) *i2ctest.Playback {
	t.Helper()
	logrus.SetLevel(logrus.PanicLevel)

	bus := &i2ctest.Playback{Ops: append(attachOps(), ops...), DontPanic: true}

	origOpen, origConf, origGauge, origHub := openBus, conf, gauge, sseHub
	t.Cleanup(func() {
		openBus, conf, gauge, sseHub = origOpen, origConf, origGauge, origHub
	})

	openBus = func(string) (i2c.BusCloser, error) { return bus, nil }
	conf = config.NewFileFromConfig(config.Default(), "")
	gauge = &attachment{}
	sseHub = events.NewEventHub()

	if err := gauge.attach(conf); err != nil {
		t.Fatalf("attach() error = %v", err)
	}

	return bus
}

func get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	setupRoutes().ServeHTTP(w, req)
	return w
}

func TestGetQuery(t *testing.T) {
	setup(t,
		i2ctest.IO{Addr: addr, W: []byte{0x02}, R: []byte{0x0f, 0x00}},
		i2ctest.IO{Addr: addr, W: []byte{0x04}, R: []byte{0x5a, 0x10}},
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x1f, 0xff}},
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x1f, 0xff}},
	)

	tests := []struct {
		path string
		want string
	}{
		{path: "/query/millivolt", want: "1170"},
		{path: "/query/chargepct", want: "90"},
		{path: "/query/remaining", want: "0"},
		{path: "/query/charging", want: "1"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if got := w.Body.String(); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetQueryUnknown(t *testing.T) {
	setup(t)

	w := get("/query/temperature")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetReading(t *testing.T) {
	setup(t,
		i2ctest.IO{Addr: addr, W: []byte{0x02}, R: []byte{0x0e, 0xd8}},
		i2ctest.IO{Addr: addr, W: []byte{0x04}, R: []byte{0x4b, 0x00}},
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x00, 0x05}},
		i2ctest.IO{Addr: addr, W: []byte{0x06}, R: []byte{0x00, 0x05}},
	)

	w := get("/reading")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var r cw2015.Reading
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("failed to unmarshal reading: %v", err)
	}
	want := cw2015.Reading{Millivolts: 1157, Percent: 75, RemainingMinutes: 5, Charging: false}
	if r != want {
		t.Errorf("reading = %+v, want %+v", r, want)
	}
}

func TestGetQueryBusErrorRecovers(t *testing.T) {
	bus := setup(t)
	ch := sseHub.Subscribe()

	// The playback is exhausted, so the next transaction fails.
	w := get("/query/millivolt")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	ev := <-ch
	if ev.Name != events.QueryFailed {
		t.Errorf("event = %q, want %q", ev.Name, events.QueryFailed)
	}

	bus.Ops = append(bus.Ops, i2ctest.IO{Addr: addr, W: []byte{0x02}, R: []byte{0x0f, 0x00}})
	w = get("/query/millivolt")
	if w.Code != http.StatusOK {
		t.Fatalf("status after recovery = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "1170" {
		t.Errorf("body = %q, want 1170", got)
	}
}

func TestGetQueryNotAttached(t *testing.T) {
	setup(t)
	gauge.detach()

	for _, path := range []string{"/query/chargepct", "/reading"} {
		if w := get(path); w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusServiceUnavailable)
		}
	}
}

func TestAttachFailureLeavesNoDevice(t *testing.T) {
	setup(t)
	ch := sseHub.Subscribe()

	openBus = func(string) (i2c.BusCloser, error) {
		return &i2ctest.Playback{DontPanic: true}, nil
	}
	err := gauge.attach(conf)
	var be *cw2015.BusError
	if !errors.As(err, &be) {
		t.Fatalf("attach() error = %v, want *BusError", err)
	}

	if dev, release := gauge.device(); dev != nil {
		release()
		t.Error("device still attached after failed attach")
	}

	// The old device is detached before the new attach is attempted.
	for _, want := range []string{events.DeviceDetached, events.DeviceAttached} {
		ev := <-ch
		if ev.Name != want {
			t.Errorf("event = %q, want %q", ev.Name, want)
		}
	}
}

func TestGetQueries(t *testing.T) {
	setup(t)

	w := get("/queries")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var qs []cw2015.Query
	if err := json.Unmarshal(w.Body.Bytes(), &qs); err != nil {
		t.Fatalf("failed to unmarshal queries: %v", err)
	}
	if len(qs) != 4 || qs[0].Name != "millivolt" || qs[0].Unit != "mV" {
		t.Errorf("queries = %+v", qs)
	}
}

func TestGetConfigAndVersion(t *testing.T) {
	setup(t)

	w := get("/config")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"bus": "/dev/i2c-0"`) {
		t.Errorf("GET /config = %d %s", w.Code, w.Body.String())
	}

	w = get("/version")
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), `"`) {
		t.Errorf("GET /version = %d %s", w.Code, w.Body.String())
	}
}
