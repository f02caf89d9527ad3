package http_request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/tracking"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is shared by every request so TCP connections are reused.
	// Defaults to a client with a 30s timeout.
	Client *resty.Client
}

// Register registers the "http_request" task with the handler table.
func (m *Module) Register(h *registry.Handlers) {
	client := m.Client
	if client == nil {
		client = resty.New().SetTimeout(30 * time.Second)
	}
	h.RegisterTask("http_request", func(ctx context.Context, inputs map[string]any) (any, error) {
		return Do(ctx, client, inputs)
	})
}

// Do performs one request described by inputs and returns a mapping with
// "status_code" and "body".
//
// Inputs: url (required), method (default GET), headers (mapping of
// strings), body (strings are sent as-is, anything else as JSON) and
// expect_status (an integer; any other status fails the step).
func Do(ctx context.Context, client *resty.Client, inputs map[string]any) (map[string]any, error) {
	url, ok := inputs["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("input 'url' must be a non-empty string")
	}
	method := http.MethodGet
	if v, ok := inputs["method"].(string); ok && v != "" {
		method = strings.ToUpper(v)
	}

	logger := ctxlog.FromContext(ctx).With("method", method, "url", url)
	logger.Info("Making HTTP request")

	req := client.R().SetContext(ctx)
	if raw, ok := inputs["headers"]; ok && raw != nil {
		headers, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("input 'headers' must be a mapping, got %T", raw)
		}
		for k, v := range headers {
			req.SetHeader(k, fmt.Sprint(v))
		}
	}
	if body, ok := inputs["body"]; ok && body != nil {
		if _, isString := body.(string); !isString && req.Header.Get("Content-Type") == "" {
			req.SetHeader("Content-Type", "application/json")
		}
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	logger.Info("Received HTTP response", "status", resp.Status(), "duration", resp.Time())

	if err := tracking.FromContext(ctx).LogMetric(ctx, "http_request.duration_seconds", resp.Time().Seconds(), ""); err != nil {
		logger.Warn("Failed to track request duration", "error", err)
	}

	if want, ok := inputs["expect_status"]; ok && want != nil {
		code, ok := want.(int64)
		if !ok {
			return nil, fmt.Errorf("input 'expect_status' must be an integer, got %T", want)
		}
		if int64(resp.StatusCode()) != code {
			return nil, fmt.Errorf("unexpected status %s, expected %d", resp.Status(), code)
		}
	}

	return map[string]any{
		"status_code": int64(resp.StatusCode()),
		"body":        string(resp.Body()),
	}, nil
}
