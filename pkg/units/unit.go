package units

import (
	"github.com/craft-tools/mcman-go/pkg/logging"
	"github.com/craft-tools/mcman-go/pkg/supervision"
)

// UnitKind represents the kind of a supervised unit
type UnitKind string

const (
	UnitKindServer UnitKind = "server"
)

// UnitMetadata describes a unit for listings and logs
type UnitMetadata struct {
	Name string   // Display name, falls back to the unit id
	Kind UnitKind // Closed set, see UnitKind constants
}

// Unit is a declaratively configured entry the daemon supervises.
// Implementations are immutable after construction; all runtime state
// lives in the unit's supervisor.
type Unit interface {
	// ID returns the unique unit identifier (registry key)
	ID() string

	// Metadata returns descriptive information about the unit
	Metadata() UnitMetadata

	// SupervisionOptions builds the supervisor configuration for this
	// unit, including the command used to spawn its process
	SupervisionOptions(logger logging.Logger) supervision.Options
}
