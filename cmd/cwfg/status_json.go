package main

import (
	"github.com/charlie0129/cwfg/pkg/config"
)

type statusJSON struct {
	Battery       statusBatteryJSON `json:"battery"`
	Configuration statusConfigJSON  `json:"configuration"`
}

type statusBatteryJSON struct {
	State          string  `json:"state"`
	Percentage     int     `json:"percentage"`
	VoltageVolts   float64 `json:"voltageVolts"`
	Millivolts     int     `json:"millivolts"`
	RunTimeMinutes *int    `json:"runTimeMinutes"`
}

type statusConfigJSON struct {
	Bus                string `json:"bus"`
	Address            uint16 `json:"address"`
	BusSpeedKHz        int    `json:"busSpeedKHz"`
	AllowNonRootAccess bool   `json:"allowNonRootAccess"`
}

// batteryStateString maps the charging flag to a power supply state.
func batteryStateString(charging bool) string {
	if charging {
		return "charging"
	}
	return "discharging"
}

func newStatusJSON(data *statusData) statusJSON {
	r := data.reading
	conf := config.NewFileFromConfig(data.config, "")

	var runTime *int
	if r.RemainingMinutes > 0 {
		m := r.RemainingMinutes
		runTime = &m
	}

	return statusJSON{
		Battery: statusBatteryJSON{
			State:          batteryStateString(r.Charging),
			Percentage:     r.Percent,
			VoltageVolts:   volts(r),
			Millivolts:     r.Millivolts,
			RunTimeMinutes: runTime,
		},
		Configuration: statusConfigJSON{
			Bus:                conf.Bus(),
			Address:            conf.Address(),
			BusSpeedKHz:        conf.BusSpeedKHz(),
			AllowNonRootAccess: conf.AllowNonRootAccess(),
		},
	}
}
