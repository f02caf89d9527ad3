package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// File appends records to a JSON-lines file.
type File struct {
	sink
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFile creates a tracker writing to path on fs. The file is created on the
// first record and appended to afterwards.
func NewFile(fs afero.Fs, path string) *File {
	f := &File{fs: fs, path: path}
	f.sink = sink{emit: f.write}
	return f
}

func (f *File) write(_ context.Context, r Record) error {
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding %s record %q: %w", r.Kind, r.Key, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out, err := f.fs.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening tracking file: %w", err)
	}
	defer out.Close()
	if _, err := out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing tracking file: %w", err)
	}
	return nil
}
