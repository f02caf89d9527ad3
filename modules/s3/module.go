package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/modules/serialize"
)

var contentTypes = map[string]string{
	serialize.FormatJSON: "application/json",
	serialize.FormatYAML: "application/yaml",
	serialize.FormatText: "text/plain; charset=utf-8",
}

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is shared by every upload. Defaults to a client with a 60s timeout.
	Client *resty.Client
}

// Register registers the "s3.upload" artifact serializer.
func (m *Module) Register(h *registry.Handlers) {
	client := m.Client
	if client == nil {
		client = resty.New().SetTimeout(60 * time.Second)
	}
	h.RegisterSerializer("s3.upload", func(ctx context.Context, _ registry.ArtifactWriter, name string, inputs map[string]any) (string, error) {
		return Upload(ctx, client, name, inputs)
	})
}

// Upload encodes the "contents" input and PUTs it to the pre-signed
// "upload_url". The optional "format" input picks the encoding (json by
// default). The returned location is the upload URL without its query, so
// signatures never end up in tracking records.
func Upload(ctx context.Context, client *resty.Client, name string, inputs map[string]any) (string, error) {
	uploadURL, ok := inputs["upload_url"].(string)
	if !ok || uploadURL == "" {
		return "", errors.New("input 'upload_url' must be a non-empty string")
	}
	format := serialize.FormatJSON
	if v, ok := inputs["format"].(string); ok && v != "" {
		format = v
	}
	contentType, ok := contentTypes[format]
	if !ok {
		return "", fmt.Errorf("unsupported format %q", format)
	}

	u, err := url.Parse(uploadURL)
	if err != nil {
		return "", fmt.Errorf("invalid upload URL: %w", err)
	}
	location := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()

	data, err := serialize.Encode(format, inputs["contents"])
	if err != nil {
		return "", err
	}

	logger := ctxlog.FromContext(ctx).With("action", "upload", "artifact", name)
	logger.Info("Uploading artifact to S3", "location", location, "size", len(data), "contentType", contentType)

	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put(uploadURL)
	if err != nil {
		return "", fmt.Errorf("failed to execute S3 upload request: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("S3 upload failed with status: %s", resp.Status())
	}

	logger.Info("Successfully uploaded artifact", "status", resp.Status())
	return location, nil
}
