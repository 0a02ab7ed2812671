package cw2015

const (
	// millivolts = raw * voltageScaleNum / voltageScaleDen
	voltageScaleNum = 312
	voltageScaleDen = 1024

	rrtMask13 = 0x1fff
	rrtMask15 = 0x7fff
	// rrtUnknown is the all-ones remaining run time, reported while charging.
	rrtUnknown = 0x1fff
)

// DecodeMillivolts converts a CELL_VOLTAGE word to millivolts.
func DecodeMillivolts(w uint16) int {
	return int(w) * voltageScaleNum / voltageScaleDen
}

// DecodePercent returns the whole-percent part of a STATE_OF_CHARGE word.
func DecodePercent(w uint16) int {
	return int(w>>8) & 0xff
}

// DecodeRemaining returns the remaining run time in minutes from an
// ALERT_REMAINING_RUNTIME word, or 0 when the chip reports it as unknown.
func DecodeRemaining(w uint16) int {
	rrt := int(w & rrtMask13)
	if rrt == rrtUnknown {
		return 0
	}
	return rrt
}

// DecodeCharging reports whether an ALERT_REMAINING_RUNTIME word indicates charging.
// Unlike DecodeRemaining it matches the sentinel over 15 bits.
func DecodeCharging(w uint16) bool {
	return w&rrtMask15 == rrtUnknown
}
