package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/charlie0129/cwfg/pkg/config"
	"github.com/charlie0129/cwfg/pkg/cw2015"
)

type statusData struct {
	reading *cw2015.Reading
	config  *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	r, err := apiClient.GetReading()
	if err != nil {
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		reading: r,
		config:  conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current battery status",
		Long:    `Get battery voltage, charge, remaining run time and charging state, plus the daemon configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			if asJSON {
				b, err := json.MarshalIndent(newStatusJSON(data), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}

			conf := config.NewFileFromConfig(data.config, "")
			r := data.reading

			cmd.Println(bold("Battery status:"))

			state := color.RedString("discharging")
			if r.Charging {
				state = color.GreenString("charging")
			}
			cmd.Printf("  State: %s\n", bold("%s", state))
			cmd.Printf("  Current charge: %s\n", bold("%d%%", r.Percent))
			cmd.Printf("  Voltage: %s\n", bold("%.3f V", volts(r)))
			if r.RemainingMinutes > 0 {
				cmd.Printf("  Remaining run time: %s\n", bold("%d minutes", r.RemainingMinutes))
			} else {
				cmd.Printf("  Remaining run time: %s\n", bold("unknown"))
			}

			cmd.Println()

			cmd.Println(bold("Daemon configuration:"))
			cmd.Printf("  Bus: %s\n", bold("%s", conf.Bus()))
			cmd.Printf("  Address: %s\n", bold("0x%02x", conf.Address()))
			if khz := conf.BusSpeedKHz(); khz > 0 {
				cmd.Printf("  Bus speed: %s\n", bold("%d kHz", khz))
			}
			cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")

	return cmd
}

// volts converts the reading the way power-management consumers expect it.
func volts(r *cw2015.Reading) float64 {
	return float64(r.Voltage()) / float64(physic.Volt)
}
