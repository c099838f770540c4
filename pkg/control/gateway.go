package control

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/craft-tools/mcman-go/pkg/domain"
	"github.com/craft-tools/mcman-go/pkg/errors"
	"github.com/craft-tools/mcman-go/pkg/logging"
)

// ClientGateway implements domain.Contract over the control socket.
// Requests on one gateway are serialized; the protocol is strictly
// one response per request.
type ClientGateway struct {
	conn   net.Conn
	reader *bufio.Reader
	logger logging.Logger
	mutex  sync.Mutex
}

// NewClientGateway connects to the daemon's control socket
func NewClientGateway(socketFile string, logger logging.Logger) (*ClientGateway, error) {
	conn, err := net.Dial("unix", socketFile)
	if err != nil {
		return nil, errors.NewIOError("failed to connect to control socket", err).
			WithContext("socket_file", socketFile)
	}
	return &ClientGateway{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, maxRequestLine),
		logger: logger,
	}, nil
}

// Close closes the underlying connection
func (gw *ClientGateway) Close() error {
	return gw.conn.Close()
}

func (gw *ClientGateway) ListUnits(ctx context.Context) ([]domain.UnitStatus, error) {
	response, err := gw.roundTrip(ctx, &Request{Op: OpList})
	if err != nil {
		return nil, err
	}
	statuses := make([]domain.UnitStatus, 0, len(response.Units))
	for _, wire := range response.Units {
		statuses = append(statuses, unitStatus(wire))
	}
	return statuses, nil
}

func (gw *ClientGateway) StartUnit(ctx context.Context, name string) error {
	_, err := gw.roundTrip(ctx, &Request{Op: OpStart, Unit: name})
	return err
}

func (gw *ClientGateway) StopUnit(ctx context.Context, name string) error {
	_, err := gw.roundTrip(ctx, &Request{Op: OpStop, Unit: name})
	return err
}

func (gw *ClientGateway) StatusUnit(ctx context.Context, name string) (domain.UnitStatus, error) {
	response, err := gw.roundTrip(ctx, &Request{Op: OpStatus, Unit: name})
	if err != nil {
		return domain.UnitStatus{}, err
	}
	if response.Unit == nil {
		return domain.UnitStatus{}, errors.NewProtocolError("status response has no unit", nil)
	}
	return unitStatus(*response.Unit), nil
}

func (gw *ClientGateway) SendCommand(ctx context.Context, name string, command string) error {
	_, err := gw.roundTrip(ctx, &Request{Op: OpSend, Unit: name, Command: command})
	return err
}

func (gw *ClientGateway) Version(ctx context.Context) (string, error) {
	response, err := gw.roundTrip(ctx, &Request{Op: OpVersion})
	if err != nil {
		return "", err
	}
	return response.Version, nil
}

func (gw *ClientGateway) ShutdownDaemon(ctx context.Context) error {
	_, err := gw.roundTrip(ctx, &Request{Op: OpShutdown})
	return err
}

// roundTrip sends one request line and reads exactly one response line.
// A context deadline becomes the connection deadline for the exchange.
func (gw *ClientGateway) roundTrip(ctx context.Context, request *Request) (*Response, error) {
	gw.mutex.Lock()
	defer gw.mutex.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := gw.conn.SetDeadline(deadline); err != nil {
			return nil, errors.NewIOError("failed to set connection deadline", err)
		}
		defer func() { _ = gw.conn.SetDeadline(time.Time{}) }()
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, errors.NewInternalError("failed to encode request", err)
	}
	payload = append(payload, '\n')

	if _, err := gw.conn.Write(payload); err != nil {
		return nil, errors.NewIOError("failed to send request", err)
	}

	line, err := gw.reader.ReadBytes('\n')
	if err != nil {
		return nil, errors.NewIOError("failed to read response", err)
	}

	var response Response
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, errors.NewProtocolError("malformed response from daemon", err)
	}

	if !response.OK {
		if response.Error == nil {
			return nil, errors.NewProtocolError("error response without error details", nil)
		}
		return nil, errorFromWire(response.Error)
	}
	return &response, nil
}
