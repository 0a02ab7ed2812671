package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/cwfg/pkg/events"
)

func NewEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "events",
		Short:   "Follow daemon events",
		GroupID: gAdvanced,
		Long:    `Follow fuel gauge attach/detach and failed query events until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := apiClient.SubscribeEvents(ctx)
			if err != nil {
				return err
			}

			for ev := range ch {
				line, err := formatEvent(ev)
				if err != nil {
					return fmt.Errorf("failed to decode %s event: %w", ev.Name, err)
				}
				cmd.Println(line)
			}

			return nil
		},
	}
}

func formatEvent(ev events.Event) (string, error) {
	switch ev.Name {
	case events.DeviceAttached, events.DeviceDetached:
		p, err := events.DecodeAs[events.DeviceEvent](ev)
		if err != nil {
			return "", err
		}
		line := fmt.Sprintf("%s %s 0x%02x on %s", stamp(p.Ts), ev.Name, p.Address, p.Bus)
		if p.Error != "" {
			line += ": " + color.RedString(p.Error)
		}
		return line, nil
	case events.QueryFailed:
		p, err := events.DecodeAs[events.QueryFailedEvent](ev)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s: %s", stamp(p.Ts), ev.Name, p.Query, color.RedString(p.Error)), nil
	default:
		return fmt.Sprintf("%s %s", ev.Name, string(ev.Data)), nil
	}
}

func stamp(ts int64) string {
	return time.Unix(ts, 0).Format(time.RFC3339)
}
