package cw2015

import "fmt"

// Register is a CW2015 register with a fixed offset and width.
type Register struct {
	Name   string
	Offset uint8
	Width  int
}

func (r Register) String() string {
	return fmt.Sprintf("%s(0x%02x)", r.Name, r.Offset)
}

// CW2015 register map.
var (
	RegVersion               = Register{Name: "VERSION", Offset: 0x00, Width: 1}
	RegCellVoltage           = Register{Name: "CELL_VOLTAGE", Offset: 0x02, Width: 2}
	RegStateOfCharge         = Register{Name: "STATE_OF_CHARGE", Offset: 0x04, Width: 2}
	RegAlertRemainingRuntime = Register{Name: "ALERT_REMAINING_RUNTIME", Offset: 0x06, Width: 2}
	RegConfig                = Register{Name: "CONFIG", Offset: 0x08, Width: 2}
	RegMode                  = Register{Name: "MODE", Offset: 0x0a, Width: 2}
	RegStatus                = Register{Name: "STATUS", Offset: 0x0c, Width: 2}
)

// MODE register commands.
const (
	ModeWake   byte = 0xc0
	ModeNormal byte = 0x00
)

// DefaultAddress is the 7-bit I2C address of the CW2015.
const DefaultAddress uint16 = 0x62
