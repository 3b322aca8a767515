package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
)

// FileSink appends successes to <dir>/<Provider>_articles.json and failures to a shared error log.
type FileSink struct {
	dir      string
	errorLog string
	format   Format

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileSink creates dir if needed. An empty errorLog uses DefaultErrorLog.
func NewFileSink(dir, errorLog string, format Format) (*FileSink, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	errorLog = strings.TrimSpace(errorLog)
	if errorLog == "" {
		errorLog = DefaultErrorLog
	}
	if format == "" {
		format = FormatConcat
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Path: dir, Err: err}
	}

	return &FileSink{
		dir:      dir,
		errorLog: errorLog,
		format:   format,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// PathFor returns the file a batch is appended to.
func (s *FileSink) PathFor(batch domain.IngestBatch) string {
	if batch.Failed() {
		return filepath.Join(s.dir, s.errorLog)
	}
	return filepath.Join(s.dir, batch.Provider+"_articles.json")
}

// Append writes the record with a single append-mode write.
func (s *FileSink) Append(ctx context.Context, batch domain.IngestBatch) error {
	path := s.PathFor(batch)
	if err := ctx.Err(); err != nil {
		return &IOError{Path: path, Err: err}
	}

	record, err := Encode(batch, s.format)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}

	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	n, err := f.Write(record)
	if err == nil && n < len(record) {
		err = fmt.Errorf("short write: %d of %d bytes", n, len(record))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	return nil
}

func (s *FileSink) lockFor(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// Close is a no-op; files are opened per append.
func (s *FileSink) Close() error { return nil }
