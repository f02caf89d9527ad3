package config

import (
	"context"
)

// Loader is the interface for a format-specific graph document loader.
type Loader interface {
	// Load reads the documents at the given paths (files or directories) and
	// translates them into a single format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
