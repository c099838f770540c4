package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/craft-tools/mcman-go/pkg/control"
	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/logging"
	"github.com/craft-tools/mcman-go/pkg/processfile"
	"github.com/craft-tools/mcman-go/pkg/registry"
	"github.com/craft-tools/mcman-go/pkg/units"
	"github.com/craft-tools/mcman-go/pkg/unitwatch"
)

// Run starts the daemon and blocks until SIGINT/SIGTERM or a client
// shutdown request, then tears everything down in order.
func Run(configFile string) error {
	config, err := LoadConfigFromFile(configFile)
	if err != nil {
		return err
	}
	if err := ValidateConfig(config); err != nil {
		return errors.NewValidationError("configuration validation failed", err).WithContext("config_file", configFile)
	}

	logger, err := logging.NewZapLogger("", config.Daemon.LogLevel)
	if err != nil {
		return err
	}

	logger.Infof("Daemon starting, version: %s, config: %s", Version, configFile)

	// This context lives for the daemon process; unit processes are
	// bound to it, not to any request
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unitList, err := units.LoadUnitDirectories(config.Daemon.UnitDirectories, logger)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %d unit definitions", len(unitList))

	pidManager := processfile.NewProcessFileManager(processfile.ProcessFileConfig{}, logger)
	reg := registry.NewRegistry(pidManager, logger)
	if err := reg.Load(unitList); err != nil {
		return err
	}

	d := NewDaemon(ctx, reg, logger)

	server := control.NewServer(control.ServerConfig{SocketFile: config.Daemon.SocketFile}, d, logger)
	if err := server.Start(ctx); err != nil {
		return err
	}

	watcher := unitwatch.NewWatcher(config.Daemon.UnitDirectories, reg, logger)
	if err := watcher.Start(ctx); err != nil {
		// The watcher is best-effort; the daemon is useful without it
		logger.Warnf("Unit watcher failed to start, error: %v", err)
		watcher = nil
	}

	d.Autostart(config.Daemon.Autostart)
	d.setState(StateRunning)
	logger.Infof("Daemon is ready, units: %d, socket: %s", len(reg.List()), config.Daemon.SocketFile)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case receivedSignal := <-sig:
		logger.Infof("Received signal: %v", receivedSignal)
	case <-d.ShutdownRequested():
		logger.Infof("Shutting down on client request")
	}

	d.setState(StateStopping)

	// Listener first, so in-flight responses (including the shutdown
	// acknowledgement) are written before units go down
	if err := server.Stop(); err != nil {
		logger.Errorf("Control server shutdown failed, error: %v", err)
	}
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Errorf("Unit watcher shutdown failed, error: %v", err)
		}
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), config.Daemon.ForceShutdownTimeout)
	defer cancelStop()
	if err := reg.StopAll(stopCtx); err != nil {
		logger.Errorf("Some units failed to stop cleanly, error: %v", err)
	}

	d.setState(StateStopped)
	logger.Infof("Daemon stopped")
	return nil
}

// ValidateConfigFile validates a configuration file without running the
// daemon. Useful for configuration testing and CI validation.
func ValidateConfigFile(configFile string) error {
	config, err := LoadConfigFromFile(configFile)
	if err != nil {
		return err
	}
	if err := ValidateConfig(config); err != nil {
		return errors.NewValidationError("configuration validation failed", err).WithContext("config_file", configFile)
	}
	return nil
}
