package cw2015

import "periph.io/x/conn/v3/physic"

// Reading is a snapshot of the four queries. It is built per request and never stored.
type Reading struct {
	Millivolts int `json:"millivolt"`
	Percent    int `json:"chargepct"`
	// RemainingMinutes is 0 when the chip does not know, e.g. while charging.
	RemainingMinutes int  `json:"remaining"`
	Charging         bool `json:"charging"`
}

// Voltage returns the cell voltage as a physic value.
func (r *Reading) Voltage() physic.ElectricPotential {
	return physic.ElectricPotential(r.Millivolts) * physic.MilliVolt
}
