package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
)

// Sink durably appends ingest batches. Implementations are safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, batch domain.IngestBatch) error
	Close() error
}

// Format selects how a batch is encoded on disk.
type Format string

const (
	// FormatConcat writes 4-space indented objects each followed by ",\n".
	FormatConcat Format = "concat"
	// FormatNDJSON writes one compact object per line.
	FormatNDJSON Format = "ndjson"

	// DefaultErrorLog is the shared failure log name.
	DefaultErrorLog = "errorLog.json"
	errorBucket     = "errorLog"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatConcat, nil
	case FormatConcat, FormatNDJSON:
		return f, nil
	default:
		return "", fmt.Errorf("output format %q not supported", s)
	}
}

// IOError reports a failed durable write.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("append %s: %v", e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// Encode renders one batch as a complete record, trailing separator included.
func Encode(batch domain.IngestBatch, format Format) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if format != FormatNDJSON {
		enc.SetIndent("", "    ")
	}
	if err := enc.Encode(batch); err != nil {
		return nil, fmt.Errorf("encode batch %s/%s: %w", batch.Provider, batch.Section, err)
	}

	if format == FormatNDJSON {
		return buf.Bytes(), nil
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	return append(out, ",\n"...), nil
}
