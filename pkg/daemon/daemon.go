package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/host/v3"

	"github.com/charlie0129/cwfg/pkg/config"
	"github.com/charlie0129/cwfg/pkg/events"
)

var (
	conf   config.Config
	gauge  = &attachment{}
	sseHub *events.EventHub
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/queries", getQueries)
	router.GET("/query/:name", getQuery)
	router.GET("/reading", getReading)
	router.GET("/config", getConfig)
	router.GET("/events", getEvents)
	router.GET("/version", getVersion)

	return router
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	var err error
	conf, err = config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to parse config during startup")
	}
	if err := conf.Validate(); err != nil {
		return pkgerrors.Wrap(err, "invalid config")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	sseHub = events.NewEventHub()

	if _, err := host.Init(); err != nil {
		return pkgerrors.Wrap(err, "failed to initialize host drivers")
	}

	// Queries are only served once the chip is attached.
	if err := gauge.attach(conf); err != nil {
		return err
	}

	router := setupRoutes()
	srv := &http.Server{
		Handler: router,
	}

	// A stale socket from a previous run would make Listen fail.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove stale socket %s", unixSocketPath)
	}

	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		gauge.detach()
		return pkgerrors.Wrapf(err, "failed to listen on %s", unixSocketPath)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			gauge.detach()
			return pkgerrors.Wrapf(err, "failed to change permissions of %s", unixSocketPath)
		}
	}

	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	notify(sddaemon.SdNotifyReady)

	// Receive SIGHUP to reload config and re-attach the chip.
	hupc := make(chan os.Signal, 1)
	signal.Notify(hupc, syscall.SIGHUP)
	reloadDone := handleReloads(hupc)

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)
	notify(sddaemon.SdNotifyStopping)

	// No reload may run past this point, or it could re-attach after the final close.
	signal.Stop(hupc)
	close(hupc)
	<-reloadDone

	// SSE streams never finish on their own, close them before Shutdown waits on them.
	sseHub.Close()

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	gauge.close()

	logrus.Info("exiting")
	return nil
}

// handleReloads reloads for every signal on hupc until it is closed. The
// returned channel is closed once the last reload has finished.
func handleReloads(hupc <-chan os.Signal) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range hupc {
			notify(sddaemon.SdNotifyReloading)
			reload()
			notify(sddaemon.SdNotifyReady)
		}
	}()
	return done
}

// reload re-reads the config file and re-attaches the chip. On failure the
// daemon keeps running with no device until the next successful reload.
func reload() {
	if err := conf.Load(); err != nil {
		logrus.Errorf("failed to reload config: %v", err)
		return
	}
	if err := conf.Validate(); err != nil {
		logrus.Errorf("invalid config after reload: %v", err)
		return
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")

	if err := gauge.attach(conf); err != nil {
		logrus.Errorf("failed to re-attach fuel gauge: %v", err)
	}
}

func notify(state string) {
	sent, err := sddaemon.SdNotify(false, state)
	if err != nil {
		logrus.Warnf("failed to notify systemd of %q: %v", state, err)
		return
	}
	if sent {
		logrus.Debugf("notified systemd: %s", state)
	}
}
