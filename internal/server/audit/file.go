package audit

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/dmitrijs2005/sic/internal/filex"
)

// FileSink appends one line per record to a local file.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink creates the parent directory of path if needed. The file
// itself is opened per append so external rotation is picked up.
func NewFileSink(path string) (*FileSink, error) {
	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, fmt.Errorf("audit file: %w", err)
	}
	return &FileSink{path: abs}, nil
}

func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}

	if _, err := f.WriteString(rec.Line() + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write audit file: %w", err)
	}
	return f.Close()
}
