package daemon

import (
	"context"
	"sync"

	"github.com/craft-tools/mcman-go/pkg/domain"
	"github.com/craft-tools/mcman-go/pkg/logging"
	"github.com/craft-tools/mcman-go/pkg/registry"
)

// Version is the daemon version reported over the control protocol
const Version = "0.1.0"

// State represents the daemon lifecycle state
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateStopping   State = "stopping"
	StateStopped    State = "stopped"
)

// Daemon implements the control contract against the unit registry
type Daemon struct {
	registry *registry.Registry
	logger   logging.Logger

	// runCtx lives for the daemon process. Supervisors must get this
	// context, never a request context: a spawned unit outlives the
	// client request that started it.
	runCtx context.Context

	state      State
	stateMutex sync.RWMutex

	shutdownOnce      sync.Once
	shutdownRequested chan struct{}
}

// NewDaemon creates the daemon contract implementation. runCtx must be
// the daemon-lifetime context.
func NewDaemon(runCtx context.Context, reg *registry.Registry, logger logging.Logger) *Daemon {
	return &Daemon{
		registry:          reg,
		logger:            logger,
		runCtx:            runCtx,
		state:             StateNotStarted,
		shutdownRequested: make(chan struct{}),
	}
}

// State returns the current daemon lifecycle state
func (d *Daemon) State() State {
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()
	return d.state
}

func (d *Daemon) setState(state State) {
	d.stateMutex.Lock()
	defer d.stateMutex.Unlock()
	d.state = state
}

// ShutdownRequested is closed when a client asks the daemon to stop
func (d *Daemon) ShutdownRequested() <-chan struct{} {
	return d.shutdownRequested
}

func (d *Daemon) ListUnits(ctx context.Context) ([]domain.UnitStatus, error) {
	infos := d.registry.List()
	statuses := make([]domain.UnitStatus, 0, len(infos))
	for _, info := range infos {
		statuses = append(statuses, unitStatusFromInfo(info))
	}
	return statuses, nil
}

func (d *Daemon) StartUnit(ctx context.Context, name string) error {
	entry, err := d.registry.Get(name)
	if err != nil {
		return err
	}
	return entry.Supervisor.Start(d.runCtx)
}

func (d *Daemon) StopUnit(ctx context.Context, name string) error {
	entry, err := d.registry.Get(name)
	if err != nil {
		return err
	}
	return entry.Supervisor.Stop(d.runCtx)
}

func (d *Daemon) StatusUnit(ctx context.Context, name string) (domain.UnitStatus, error) {
	entry, err := d.registry.Get(name)
	if err != nil {
		return domain.UnitStatus{}, err
	}
	status := entry.Supervisor.Status()
	return domain.UnitStatus{
		Name:     entry.Unit.ID(),
		Kind:     string(entry.Unit.Metadata().Kind),
		State:    string(status.State),
		PID:      status.PID,
		ExitCode: status.ExitCode,
	}, nil
}

func (d *Daemon) SendCommand(ctx context.Context, name string, command string) error {
	entry, err := d.registry.Get(name)
	if err != nil {
		return err
	}
	return entry.Supervisor.SendConsole(command)
}

func (d *Daemon) Version(ctx context.Context) (string, error) {
	return Version, nil
}

func (d *Daemon) ShutdownDaemon(ctx context.Context) error {
	d.logger.Infof("Shutdown requested by client")
	d.shutdownOnce.Do(func() {
		close(d.shutdownRequested)
	})
	return nil
}

// Autostart starts the configured units. Failures are logged and
// skipped; a broken unit must not prevent the daemon from coming up.
func (d *Daemon) Autostart(names []string) {
	for _, name := range names {
		entry, err := d.registry.Get(name)
		if err != nil {
			d.logger.Warnf("Autostart skipped, unit not found, unit: %s", name)
			continue
		}
		if err := entry.Supervisor.Start(d.runCtx); err != nil {
			d.logger.Warnf("Autostart failed, unit: %s, error: %v", name, err)
			continue
		}
		d.logger.Infof("Autostarted unit, unit: %s", name)
	}
}

func unitStatusFromInfo(info registry.UnitInfo) domain.UnitStatus {
	return domain.UnitStatus{
		Name:     info.Name,
		Kind:     string(info.Kind),
		State:    string(info.State),
		PID:      info.PID,
		ExitCode: info.ExitCode,
	}
}
