package control

import (
	"context"
	"fmt"

	"github.com/craft-tools/mcman-go/pkg/domain"
	"github.com/craft-tools/mcman-go/pkg/logging"
)

// requestHandler dispatches decoded requests to the domain contract and
// maps results onto wire responses. Every request yields exactly one
// response; dispatch never returns an error upward.
type requestHandler struct {
	handler domain.Contract
	logger  logging.Logger
}

func newRequestHandler(handler domain.Contract, logger logging.Logger) *requestHandler {
	return &requestHandler{
		handler: handler,
		logger:  logger,
	}
}

func (h *requestHandler) Handle(ctx context.Context, request *Request) *Response {
	switch request.Op {
	case OpList:
		statuses, err := h.handler.ListUnits(ctx)
		if err != nil {
			h.logger.Errorf("List units handler: %v", err)
			return errorResponse(err)
		}
		response := okResponse()
		response.Units = make([]WireUnit, 0, len(statuses))
		for _, status := range statuses {
			response.Units = append(response.Units, wireUnit(status))
		}
		return response

	case OpStart:
		if request.Unit == "" {
			return protocolErrorResponse("operation 'start' requires a unit name")
		}
		if err := h.handler.StartUnit(ctx, request.Unit); err != nil {
			h.logger.Errorf("Start unit handler, unit: %s: %v", request.Unit, err)
			return errorResponse(err)
		}
		return okResponse()

	case OpStop:
		if request.Unit == "" {
			return protocolErrorResponse("operation 'stop' requires a unit name")
		}
		if err := h.handler.StopUnit(ctx, request.Unit); err != nil {
			h.logger.Errorf("Stop unit handler, unit: %s: %v", request.Unit, err)
			return errorResponse(err)
		}
		return okResponse()

	case OpStatus:
		if request.Unit == "" {
			return protocolErrorResponse("operation 'status' requires a unit name")
		}
		status, err := h.handler.StatusUnit(ctx, request.Unit)
		if err != nil {
			h.logger.Errorf("Status unit handler, unit: %s: %v", request.Unit, err)
			return errorResponse(err)
		}
		response := okResponse()
		unit := wireUnit(status)
		response.Unit = &unit
		return response

	case OpSend:
		if request.Unit == "" {
			return protocolErrorResponse("operation 'send' requires a unit name")
		}
		if request.Command == "" {
			return protocolErrorResponse("operation 'send' requires a command")
		}
		if err := h.handler.SendCommand(ctx, request.Unit, request.Command); err != nil {
			h.logger.Errorf("Send command handler, unit: %s: %v", request.Unit, err)
			return errorResponse(err)
		}
		return okResponse()

	case OpVersion:
		version, err := h.handler.Version(ctx)
		if err != nil {
			h.logger.Errorf("Version handler: %v", err)
			return errorResponse(err)
		}
		response := okResponse()
		response.Version = version
		return response

	case OpShutdown:
		if err := h.handler.ShutdownDaemon(ctx); err != nil {
			h.logger.Errorf("Shutdown handler: %v", err)
			return errorResponse(err)
		}
		return okResponse()

	default:
		return protocolErrorResponse(fmt.Sprintf("unknown operation '%s'", request.Op))
	}
}
