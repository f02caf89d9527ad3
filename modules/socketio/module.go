package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const defaultTimeout = 10 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the "socketio" task with the handler table.
func (m *Module) Register(h *registry.Handlers) {
	h.RegisterTask("socketio", Run)
}

// request holds the decoded task inputs.
type request struct {
	URL                string
	Namespace          string
	OnEvent            string
	EmitEvent          string
	EmitData           any
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	value any
	err   error
}

func parseRequest(inputs map[string]any) (*request, error) {
	req := &request{Namespace: "/", Timeout: defaultTimeout, EmitData: inputs["emit_data"]}

	var ok bool
	if req.URL, ok = inputs["url"].(string); !ok || req.URL == "" {
		return nil, errors.New("input 'url' must be a non-empty string")
	}
	if req.OnEvent, ok = inputs["on_event"].(string); !ok || req.OnEvent == "" {
		return nil, errors.New("input 'on_event' must be a non-empty string")
	}
	if v, ok := inputs["namespace"].(string); ok && v != "" {
		req.Namespace = v
	}
	if v, ok := inputs["emit_event"].(string); ok {
		req.EmitEvent = v
	}
	if v, ok := inputs["insecure_skip_verify"].(bool); ok {
		req.InsecureSkipVerify = v
	}
	if v, ok := inputs["timeout"].(string); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("input 'timeout' is not a duration: %w", err)
		}
		req.Timeout = d
	}
	return req, nil
}

// Run connects to a socket.io server, optionally emits an event once
// connected, and returns the payload of the first on_event message.
func Run(ctx context.Context, inputs map[string]any) (any, error) {
	req, err := parseRequest(inputs)
	if err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx).With("runner", "socketio", "url", req.URL, "onEvent", req.OnEvent, "emitEvent", req.EmitEvent)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	parsedURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	opCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if req.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(req.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	// --- Event Listeners ---
	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Successfully connected", "namespace", req.Namespace, "sid", io.Id())
		if req.EmitEvent != "" {
			jsonData, _ := json.Marshal(req.EmitData)
			logger.Info("Emitting event", "event", req.EmitEvent, "data", string(jsonData))
			io.Emit(req.EmitEvent, req.EmitData)
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case done <- opResult{err: err}:
		default:
		}
	})

	io.On(types.EventName(req.OnEvent), func(data ...any) {
		var responseData any
		if len(data) > 0 {
			responseData = normalize(data[0])
		}
		select {
		case done <- opResult{value: responseData}:
		default:
		}
	})

	// --- Execution Block ---
	io.Connect()

	select {
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isConnected.Load() {
			return nil, fmt.Errorf("timed out after connecting while waiting for event '%s'", req.OnEvent)
		}
		return nil, errors.New("timed out while waiting for initial connection")
	case res := <-done:
		return res.value, res.err
	}
}

// normalize maps decoded JSON onto runtime values: whole numbers become
// int64 so they satisfy integer-typed outputs.
func normalize(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}
