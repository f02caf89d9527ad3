package tracking

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultSocketEvent is the event name records are emitted under.
const DefaultSocketEvent = "taskgraph:record"

// SocketIO streams records to a socket.io server as they happen.
type SocketIO struct {
	sink
	io    *socket.Socket
	event string
}

// SocketOptions configures DialSocketIO.
type SocketOptions struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// DialSocketIO connects to the server and returns a tracker emitting on it.
// It waits for the connection to be established.
func DialSocketIO(ctx context.Context, o SocketOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("tracker", "socketio", "url", o.URL)
	logger.Debug("Connecting tracking client...")

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if o.Event == "" {
		o.Event = DefaultSocketEvent
	}
	if o.Namespace == "" {
		o.Namespace = "/"
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	// connect and connect_error may both fire; only the first result is read.
	connectChan := make(chan error, 1)
	report := func(err error) {
		select {
		case connectChan <- err:
		default:
		}
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Tracking client connected", "sid", io.Id())
		report(nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		report(connectError(errs))
	})
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(o.Timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", o.Timeout)
	}

	s := &SocketIO{io: io, event: o.Event}
	s.sink = sink{emit: s.send}
	return s, nil
}

func connectError(args []any) error {
	if len(args) == 0 {
		return fmt.Errorf("connection refused")
	}
	if err, ok := args[0].(error); ok {
		return err
	}
	return fmt.Errorf("%v", args[0])
}

func (s *SocketIO) send(_ context.Context, r Record) error {
	s.io.Emit(s.event, map[string]any{
		"kind":  string(r.Kind),
		"job":   r.Job,
		"key":   r.Key,
		"value": r.Value,
		"step":  r.Step,
		"time":  r.Time.Format(time.RFC3339Nano),
	})
	return nil
}

// Close disconnects from the server.
func (s *SocketIO) Close() {
	s.io.Disconnect()
}
