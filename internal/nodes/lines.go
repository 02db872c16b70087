// Package nodes holds a handful of illustrative node implementations used
// by FromYAML-decoded documents (such as those cmd/pipelinectl loads) that
// name them by type. They exist to exercise the engine end to end —
// this is not a connector catalogue (§1 Non-goals).
package nodes

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/nodeflow/nodeflow/internal/pipe"
)

// LineSourceConfig configures LineSource.
type LineSourceConfig struct {
	// Path to read lines from. "-" or empty reads os.Stdin.
	Path string `yaml:"path"`
}

// LineSource emits one item per line read from a file or stdin. Grounded on
// Streamy's command-step's stdout scanning (internal/plugin command.go
// reads a subprocess's output line by line); here the file itself is the
// source rather than a subprocess.
type LineSource struct {
	cfg LineSourceConfig
}

// NewLineSource returns a LineSource reading from cfg.Path.
func NewLineSource(cfg LineSourceConfig) LineSource { return LineSource{cfg: cfg} }

func (s LineSource) Initialize(ctx context.Context) (pipe.Pipe[string], error) {
	r := os.Stdin
	if s.cfg.Path != "" && s.cfg.Path != "-" {
		f, err := os.Open(s.cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("line_source: opening %q: %w", s.cfg.Path, err)
		}
		r = f
	}
	return &lineScanPipe{scanner: bufio.NewScanner(r), closer: r}, nil
}

// lineScanPipe adapts a bufio.Scanner to pipe.Pipe[string].
type lineScanPipe struct {
	scanner *bufio.Scanner
	closer  *os.File
}

func (p *lineScanPipe) Iterate(ctx context.Context) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	default:
	}
	if !p.scanner.Scan() {
		return "", false, p.scanner.Err()
	}
	return p.scanner.Text(), true, nil
}

func (p *lineScanPipe) Dispose() error {
	if p.closer == nil || p.closer == os.Stdin {
		return nil
	}
	return p.closer.Close()
}
