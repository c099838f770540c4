package units

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/logging"

	"gopkg.in/yaml.v3"
)

// UnitHeader identifies a unit within its definition file
type UnitHeader struct {
	ID   string   `yaml:"id"`
	Type UnitKind `yaml:"type"`
}

// UnitFile is the on-disk unit definition: a header plus one body section
// matching the declared type
type UnitFile struct {
	Unit   UnitHeader    `yaml:"unit"`
	Server *ServerConfig `yaml:"server,omitempty"`
}

// LoadUnitFile loads a single unit definition from a YAML file
func LoadUnitFile(filename string) (Unit, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read unit file", err).WithContext("filename", filename)
	}

	var file UnitFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.NewValidationError("failed to parse unit file", err).WithContext("filename", filename)
	}

	unit, err := unitFromFile(&file)
	if err != nil {
		if domainErr, ok := err.(*errors.DomainError); ok {
			return nil, domainErr.WithContext("filename", filename)
		}
		return nil, err
	}
	return unit, nil
}

// unitFromFile dispatches on the declared unit type. The type set is
// closed; unknown types are configuration errors, not extension points.
func unitFromFile(file *UnitFile) (Unit, error) {
	switch file.Unit.Type {
	case UnitKindServer:
		if file.Server == nil {
			return nil, errors.NewValidationError(
				fmt.Sprintf("unit '%s' declares type 'server' but has no server section", file.Unit.ID), nil)
		}
		return NewServerUnit(file.Unit.ID, *file.Server)
	default:
		return nil, errors.NewValidationError(
			fmt.Sprintf("unknown unit type '%s' for unit '%s'", file.Unit.Type, file.Unit.ID), nil)
	}
}

// LoadUnitDirectories loads all unit definitions found in the given
// directories. Any unreadable directory or invalid unit file fails the
// whole load; a daemon must not come up with a partial unit set.
func LoadUnitDirectories(directories []string, logger logging.Logger) ([]Unit, error) {
	var units []Unit
	for _, directory := range directories {
		entries, err := os.ReadDir(directory)
		if err != nil {
			return nil, errors.NewIOError("failed to read unit directory", err).WithContext("directory", directory)
		}
		for _, entry := range entries {
			if entry.IsDir() || !IsUnitFileName(entry.Name()) {
				continue
			}
			path := filepath.Join(directory, entry.Name())
			unit, err := LoadUnitFile(path)
			if err != nil {
				return nil, err
			}
			logger.Infof("Loaded unit definition, unit: %s, file: %s", unit.ID(), path)
			units = append(units, unit)
		}
	}
	return units, nil
}

// IsUnitFileName reports whether a file name looks like a unit definition
func IsUnitFileName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
