package nodes

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nodeflow/nodeflow/internal/pipe"
)

// WriterSinkConfig configures WriterSink.
type WriterSinkConfig struct {
	// Path to write lines to. "-" or empty writes os.Stdout.
	Path string `yaml:"path"`
}

// WriterSink writes every item's fmt.Sprint form as one line, streaming
// rather than collecting, since a sink's whole point is to drain its input
// as items become available instead of waiting for the run to finish.
type WriterSink[TIn any] struct {
	w io.Writer
}

// NewWriterSink returns a WriterSink writing to cfg.Path.
func NewWriterSink[TIn any](cfg WriterSinkConfig) (*WriterSink[TIn], error) {
	w := io.Writer(os.Stdout)
	if cfg.Path != "" && cfg.Path != "-" {
		f, err := os.Create(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("writer_sink: creating %q: %w", cfg.Path, err)
		}
		w = f
	}
	return &WriterSink[TIn]{w: w}, nil
}

func (s *WriterSink[TIn]) ExecutePipe(ctx context.Context, input pipe.Pipe[TIn]) error {
	for {
		item, ok, err := input.Iterate(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if _, err := fmt.Fprintln(s.w, item); err != nil {
			return err
		}
	}
}

func (s *WriterSink[TIn]) Dispose() error {
	if closer, ok := s.w.(io.Closer); ok && s.w != io.Writer(os.Stdout) {
		return closer.Close()
	}
	return nil
}
