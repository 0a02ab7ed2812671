package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/cwfg/pkg/cw2015"
	"github.com/charlie0129/cwfg/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Bus:                ptr.To("/dev/i2c-0"),
		Address:            ptr.To(int(cw2015.DefaultAddress)),
		BusSpeedKHz:        ptr.To(0),
		AllowNonRootAccess: ptr.To(false),
	}
)

// Default returns a config with every field set to its default value.
func Default() *RawFileConfig {
	return &RawFileConfig{
		Bus:                ptr.To(*defaultFileConfig.Bus),
		Address:            ptr.To(*defaultFileConfig.Address),
		BusSpeedKHz:        ptr.To(*defaultFileConfig.BusSpeedKHz),
		AllowNonRootAccess: ptr.To(*defaultFileConfig.AllowNonRootAccess),
	}
}

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	Bus                *string `json:"bus,omitempty"`
	Address            *int    `json:"address,omitempty"`
	BusSpeedKHz        *int    `json:"busSpeedKHz,omitempty"`
	AllowNonRootAccess *bool   `json:"allowNonRootAccess,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		Bus:                ptr.To(c.Bus()),
		Address:            ptr.To(int(c.Address())),
		BusSpeedKHz:        ptr.To(c.BusSpeedKHz()),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
	}

	return rawConfig, nil
}

func (f *File) Bus() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.Bus != nil && *f.c.Bus != "" {
		return *f.c.Bus
	}

	return *defaultFileConfig.Bus
}

func (f *File) Address() uint16 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	addr := *defaultFileConfig.Address
	if f.c.Address != nil {
		addr = *f.c.Address
	}

	return uint16(addr)
}

func (f *File) BusSpeedKHz() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c.BusSpeedKHz != nil {
		return *f.c.BusSpeedKHz
	}

	return *defaultFileConfig.BusSpeedKHz
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var allowNonRootAccess bool

	if f.c.AllowNonRootAccess != nil {
		allowNonRootAccess = *f.c.AllowNonRootAccess
	} else {
		allowNonRootAccess = *defaultFileConfig.AllowNonRootAccess
	}

	return allowNonRootAccess
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) Validate() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}
	if f.c.Address != nil && (*f.c.Address < 0x03 || *f.c.Address > 0x77) {
		return pkgerrors.Errorf("address 0x%02x is outside the 7-bit range 0x03-0x77", *f.c.Address)
	}
	if f.c.BusSpeedKHz != nil && *f.c.BusSpeedKHz < 0 {
		return pkgerrors.Errorf("bus speed must not be negative, got %d", *f.c.BusSpeedKHz)
	}

	return nil
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"bus":                f.Bus(),
		"address":            f.Address(),
		"busSpeedKHz":        f.BusSpeedKHz(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
}
