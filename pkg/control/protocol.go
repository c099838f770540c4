package control

import (
	"github.com/craft-tools/mcman-go/pkg/domain"
	"github.com/craft-tools/mcman-go/pkg/errors"
)

// Wire format: one JSON request per line, exactly one JSON response line
// per request, over a local stream socket.

// Operation names on the wire
const (
	OpList     = "list"
	OpStart    = "start"
	OpStop     = "stop"
	OpStatus   = "status"
	OpSend     = "send"
	OpVersion  = "version"
	OpShutdown = "shutdown"
)

// Request is one decoded client request line
type Request struct {
	Op      string `json:"op"`
	Unit    string `json:"unit,omitempty"`
	Command string `json:"command,omitempty"`
}

// Error kinds on the wire
const (
	ErrorKindUnitNotFound   = "unit_not_found"
	ErrorKindAlreadyRunning = "already_running"
	ErrorKindNotRunning     = "not_running"
	ErrorKindSpawnFailure   = "spawn_failure"
	ErrorKindProtocol       = "protocol_error"
	ErrorKindInternal       = "internal_error"
)

// WireError carries a failed operation's classification and message
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WireUnit is the serialized form of a unit status
type WireUnit struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	State    string `json:"state"`
	PID      int    `json:"pid,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// Response is one response line. OK and Error are mutually exclusive.
type Response struct {
	OK      bool       `json:"ok"`
	Units   []WireUnit `json:"units,omitempty"`
	Unit    *WireUnit  `json:"unit,omitempty"`
	Version string     `json:"version,omitempty"`
	Error   *WireError `json:"error,omitempty"`
}

func okResponse() *Response {
	return &Response{OK: true}
}

func errorResponse(err error) *Response {
	return &Response{
		OK: false,
		Error: &WireError{
			Kind:    errorKindOf(err),
			Message: err.Error(),
		},
	}
}

func protocolErrorResponse(message string) *Response {
	return &Response{
		OK: false,
		Error: &WireError{
			Kind:    ErrorKindProtocol,
			Message: message,
		},
	}
}

// errorKindOf maps the internal error taxonomy onto the closed set of
// wire kinds. Everything unclassified is internal.
func errorKindOf(err error) string {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeNotFound:
		return ErrorKindUnitNotFound
	case errors.ErrorTypeAlreadyRunning:
		return ErrorKindAlreadyRunning
	case errors.ErrorTypeNotRunning:
		return ErrorKindNotRunning
	case errors.ErrorTypeSpawn:
		return ErrorKindSpawnFailure
	case errors.ErrorTypeProtocol, errors.ErrorTypeValidation:
		return ErrorKindProtocol
	default:
		return ErrorKindInternal
	}
}

// errorFromWire reconstructs a typed error on the client side
func errorFromWire(wireError *WireError) error {
	switch wireError.Kind {
	case ErrorKindUnitNotFound:
		return errors.NewNotFoundError(wireError.Message, nil)
	case ErrorKindAlreadyRunning:
		return errors.NewAlreadyRunningError(wireError.Message, nil)
	case ErrorKindNotRunning:
		return errors.NewNotRunningError(wireError.Message, nil)
	case ErrorKindSpawnFailure:
		return errors.NewSpawnError(wireError.Message, nil)
	case ErrorKindProtocol:
		return errors.NewProtocolError(wireError.Message, nil)
	default:
		return errors.NewInternalError(wireError.Message, nil)
	}
}

func wireUnit(status domain.UnitStatus) WireUnit {
	return WireUnit{
		Name:     status.Name,
		Kind:     status.Kind,
		State:    status.State,
		PID:      status.PID,
		ExitCode: status.ExitCode,
	}
}

func unitStatus(wire WireUnit) domain.UnitStatus {
	return domain.UnitStatus{
		Name:     wire.Name,
		Kind:     wire.Kind,
		State:    wire.State,
		PID:      wire.PID,
		ExitCode: wire.ExitCode,
	}
}
