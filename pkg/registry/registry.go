package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/logging"
	"github.com/craft-tools/mcman-go/pkg/processfile"
	"github.com/craft-tools/mcman-go/pkg/supervision"
	"github.com/craft-tools/mcman-go/pkg/units"
)

// UnitEntry pairs a unit definition with its supervisor
type UnitEntry struct {
	Unit       units.Unit
	Supervisor supervision.Supervisor
}

// UnitInfo is a point-in-time view of one unit for listings
type UnitInfo struct {
	Name     string
	Kind     units.UnitKind
	State    supervision.UnitState
	PID      int
	ExitCode *int
}

// Registry holds all units known to the daemon, keyed by unit id. The
// registry lives for the daemon process; there is no persistence.
type Registry struct {
	entries    map[string]*UnitEntry
	pidManager *processfile.ProcessFileManager
	logger     logging.Logger
	mutex      sync.RWMutex
}

// NewRegistry creates an empty registry. pidManager may be nil to
// disable PID files.
func NewRegistry(pidManager *processfile.ProcessFileManager, logger logging.Logger) *Registry {
	return &Registry{
		entries:    make(map[string]*UnitEntry),
		pidManager: pidManager,
		logger:     logger,
	}
}

// Load populates the registry from the startup unit set. A duplicate
// unit id aborts the load before any entry is added.
func (r *Registry) Load(unitList []units.Unit) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Uniqueness check over the whole batch before touching the map
	seen := make(map[string]bool, len(unitList))
	for _, unit := range unitList {
		id := unit.ID()
		if seen[id] {
			return errors.NewConflictError(
				fmt.Sprintf("duplicate unit name '%s'", id), nil)
		}
		if _, exists := r.entries[id]; exists {
			return errors.NewConflictError(
				fmt.Sprintf("duplicate unit name '%s'", id), nil)
		}
		seen[id] = true
	}

	for _, unit := range unitList {
		r.entries[unit.ID()] = r.newEntry(unit)
		r.logger.Infof("Registered unit, unit: %s", unit.ID())
	}
	return nil
}

// Add registers a single unit at runtime (used by the unit watcher)
func (r *Registry) Add(unit units.Unit) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	id := unit.ID()
	if _, exists := r.entries[id]; exists {
		return errors.NewConflictError(
			fmt.Sprintf("duplicate unit name '%s'", id), nil)
	}

	r.entries[id] = r.newEntry(unit)
	r.logger.Infof("Registered unit, unit: %s", id)
	return nil
}

// Get returns the entry for a unit id
func (r *Registry) Get(name string) (*UnitEntry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.entries[name]
	if !exists {
		return nil, errors.NewNotFoundError(
			fmt.Sprintf("unit '%s' not found", name), nil).WithContext("unit", name)
	}
	return entry, nil
}

// List returns a snapshot of all units sorted by name. Status reads are
// non-blocking, so a unit mid-transition reports its transitional state.
func (r *Registry) List() []UnitInfo {
	entries := r.snapshot()

	infos := make([]UnitInfo, 0, len(entries))
	for _, entry := range entries {
		status := entry.Supervisor.Status()
		infos = append(infos, UnitInfo{
			Name:     entry.Unit.ID(),
			Kind:     entry.Unit.Metadata().Kind,
			State:    status.State,
			PID:      status.PID,
			ExitCode: status.ExitCode,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// StopAll stops every running unit. Per-unit failures are aggregated;
// units that are not running are skipped, not failures.
func (r *Registry) StopAll(ctx context.Context) error {
	entries := r.snapshot()

	collection := errors.NewErrorCollection()
	for _, entry := range entries {
		if err := entry.Supervisor.Stop(ctx); err != nil {
			if errors.IsNotRunningError(err) {
				continue
			}
			r.logger.Errorf("Failed to stop unit, unit: %s, error: %v", entry.Unit.ID(), err)
			collection.Add(err)
		}
	}
	return collection.ToError()
}

// snapshot copies the entry set under the read lock so long supervisor
// operations never run while the registry lock is held
func (r *Registry) snapshot() []*UnitEntry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entries := make([]*UnitEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	return entries
}

func (r *Registry) newEntry(unit units.Unit) *UnitEntry {
	options := unit.SupervisionOptions(r.logger)
	options.PIDManager = r.pidManager
	return &UnitEntry{
		Unit:       unit,
		Supervisor: supervision.NewSupervisor(options, unit.ID(), r.logger),
	}
}
