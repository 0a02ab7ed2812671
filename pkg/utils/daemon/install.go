package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sddbus "github.com/coreos/go-systemd/v22/dbus"
	"github.com/sirupsen/logrus"
)

const (
	unitName = "cwfg.service"

	unitTemplate = `[Unit]
Description=CW2015 fuel gauge telemetry daemon
After=local-fs.target

[Service]
Type=notify
ExecStart=/path/to/cwfg daemon --config /path/to/config --daemon-socket /path/to/socket
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure

[Install]
WantedBy=multi-user.target
`
)

var (
	unitPath = "/etc/systemd/system/" + unitName

	systemdTimeout = 30 * time.Second
)

// RenderUnit returns the systemd unit running exePath as the daemon.
func RenderUnit(exePath, configPath, socketPath string) string {
	return strings.NewReplacer(
		"/path/to/cwfg", exePath,
		"/path/to/config", configPath,
		"/path/to/socket", socketPath,
	).Replace(unitTemplate)
}

// Install writes the systemd unit for the current executable, then enables and starts it.
func Install(configPath, socketPath string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	// warn if the file already exists
	if _, err := os.Stat(unitPath); err == nil {
		logrus.Warnf("%s already exists, overwriting it", unitPath)
	}

	logrus.Infof("writing systemd unit to %s", unitPath)
	err = os.WriteFile(unitPath, []byte(RenderUnit(exePath, configPath, socketPath)), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), systemdTimeout)
	defer cancel()

	conn, err := sddbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}

	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{unitPath}, false, true); err != nil {
		return fmt.Errorf("failed to enable %s: %w", unitName, err)
	}

	logrus.Infof("starting cwfg")

	return waitJob(ctx, unitName, func(ch chan<- string) (int, error) {
		return conn.StartUnitContext(ctx, unitName, "replace", ch)
	})
}

// waitJob runs a systemd job and waits for its result.
func waitJob(ctx context.Context, name string, run func(ch chan<- string) (int, error)) error {
	ch := make(chan string, 1)
	if _, err := run(ch); err != nil {
		return fmt.Errorf("failed to queue job for %s: %w", name, err)
	}

	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("job for %s finished with result %q", name, result)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for %s: %w", name, ctx.Err())
	}
}
