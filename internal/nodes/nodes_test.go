package nodes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodeflow/nodeflow/internal/node"
	"github.com/nodeflow/nodeflow/internal/pipe"
)

func TestLineSourceReadsLinesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644))

	src := NewLineSource(LineSourceConfig{Path: path})
	p, err := src.Initialize(context.Background())
	require.NoError(t, err)
	defer p.Dispose()

	items, err := pipe.Collect[string](context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three"}, items)
}

func TestUppercaseExecuteItem(t *testing.T) {
	out, err := Uppercase{}.ExecuteItem(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "HI", out)
}

func TestLineLengthExecuteItem(t *testing.T) {
	out, err := LineLength{}.ExecuteItem(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, 5, out)
}

func TestJSONDecodeExecuteItem(t *testing.T) {
	out, err := JSONDecode{}.ExecuteItem(context.Background(), `{"a": 1}`)
	require.NoError(t, err)
	require.Equal(t, float64(1), out["a"])

	_, err = JSONDecode{}.ExecuteItem(context.Background(), `not json`)
	require.Error(t, err)
}

func TestWriterSinkWritesEachItemAsALine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	sink, err := NewWriterSink[string](WriterSinkConfig{Path: path})
	require.NoError(t, err)

	err = sink.ExecutePipe(context.Background(), pipe.FromSlice([]string{"a", "b"}))
	require.NoError(t, err)
	require.NoError(t, sink.Dispose())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", string(data))
}

func TestRegisterWiresEveryBuiltinType(t *testing.T) {
	reg := node.NewRegistry()
	require.NoError(t, Register(reg))
	for _, name := range []string{"line_source", "uppercase", "line_length", "json_decode", "stdout_sink"} {
		require.Contains(t, reg.Types(), name)
	}
}
