package nodes

import (
	"context"
	"encoding/json"
	"strings"
)

// Uppercase is a Transform[string,string] that upper-cases each item. It
// needs no configuration and exists mainly to give a minimal, dependency-
// free example of node.Transform's item-at-a-time shape.
type Uppercase struct{}

func (Uppercase) ExecuteItem(ctx context.Context, item string) (string, error) {
	return strings.ToUpper(item), nil
}

// LineLength is a Transform[string,int], illustrating a type-changing
// transform (the common case a real pipeline exercises: parse, measure,
// reshape).
type LineLength struct{}

func (LineLength) ExecuteItem(ctx context.Context, item string) (int, error) {
	return len(item), nil
}

// JSONDecode is a Transform[string, map[string]any] that parses each item
// as a JSON object, the illustrative "structured extraction" transform.
// ExecuteItem returning an error here surfaces through the node's
// item-level ErrorHandler exactly like any other node, so a malformed line
// can be skipped/dead-lettered/retried by configuration rather than by
// special-casing parse failures.
type JSONDecode struct{}

func (JSONDecode) ExecuteItem(ctx context.Context, item string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(item), &out); err != nil {
		return nil, err
	}
	return out, nil
}
