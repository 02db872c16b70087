package nodes

import (
	"context"

	"gopkg.in/yaml.v3"

	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/pipe"
	"github.com/nodeflow/nodeflow/internal/strategy"
)

// Register wires every illustrative node type in this package into reg
// under a stable type name, for FromYAML-decoded documents to resolve by
// name.
func Register(reg *node.Registry) error {
	for name, factory := range map[string]node.Factory{
		"line_source": func(rawConfig any) (any, error) {
			var cfg LineSourceConfig
			if err := decodeConfig(rawConfig, &cfg); err != nil {
				return nil, err
			}
			return node.SourceRunner[string](NewLineSource(cfg)), nil
		},
		"uppercase": func(rawConfig any) (any, error) {
			return node.TransformRunner[string, string](func(ctx context.Context, in pipe.Pipe[string]) pipe.Pipe[string] {
				return strategy.RunSequential(ctx, Uppercase{}, in)
			}), nil
		},
		"line_length": func(rawConfig any) (any, error) {
			return node.TransformRunner[string, int](func(ctx context.Context, in pipe.Pipe[string]) pipe.Pipe[int] {
				return strategy.RunSequential(ctx, LineLength{}, in)
			}), nil
		},
		"json_decode": func(rawConfig any) (any, error) {
			return node.TransformRunner[string, map[string]any](func(ctx context.Context, in pipe.Pipe[string]) pipe.Pipe[map[string]any] {
				return strategy.RunSequential(ctx, JSONDecode{}, in)
			}), nil
		},
		"stdout_sink": func(rawConfig any) (any, error) {
			var cfg WriterSinkConfig
			if err := decodeConfig(rawConfig, &cfg); err != nil {
				return nil, err
			}
			sink, err := NewWriterSink[string](cfg)
			if err != nil {
				return nil, err
			}
			return node.SinkRunner[string](sink), nil
		},
	} {
		if err := reg.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

func decodeConfig(rawConfig any, out any) error {
	n, ok := rawConfig.(*yaml.Node)
	if !ok || n == nil {
		return nil
	}
	return n.Decode(out)
}
