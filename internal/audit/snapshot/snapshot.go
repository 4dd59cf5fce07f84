// Package snapshot turns entities into plain JSON values and computes the
// JSON Patch style difference between two of them.
package snapshot

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Op is one change between two snapshots.
type Op struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Of round-trips v through JSON so the result only holds maps, slices and
// scalars. Values that cannot be encoded yield nil.
func Of(v any) any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// Diff returns the operations that turn a into b. Object keys are visited in
// sorted order so the output is stable.
func Diff(a, b any) []Op {
	return diff(a, b, "")
}

func diff(a, b any, path string) []Op {
	if a == nil && b == nil {
		return nil
	}
	if a == nil || b == nil {
		return []Op{{Op: "replace", Path: rootPath(path), Value: b}}
	}

	aMap, aIsMap := a.(map[string]any)
	bMap, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		return diffObjects(aMap, bMap, path)
	}

	aArr, aIsArr := a.([]any)
	bArr, bIsArr := b.([]any)
	if aIsArr && bIsArr {
		return diffArrays(aArr, bArr, path)
	}

	if aIsMap || bIsMap || aIsArr || bIsArr || a != b {
		return []Op{{Op: "replace", Path: rootPath(path), Value: b}}
	}
	return nil
}

func diffObjects(a, b map[string]any, path string) []Op {
	var ops []Op
	for _, k := range sortedKeys(a) {
		if _, ok := b[k]; !ok {
			ops = append(ops, Op{Op: "remove", Path: path + "/" + escapeKey(k)})
		}
	}
	for _, k := range sortedKeys(b) {
		child := path + "/" + escapeKey(k)
		av, ok := a[k]
		if !ok {
			ops = append(ops, Op{Op: "add", Path: child, Value: b[k]})
			continue
		}
		ops = append(ops, diff(av, b[k], child)...)
	}
	return ops
}

func diffArrays(a, b []any, path string) []Op {
	var ops []Op
	common := min(len(a), len(b))
	for i := 0; i < common; i++ {
		ops = append(ops, diff(a[i], b[i], path+"/"+strconv.Itoa(i))...)
	}
	for i := len(a) - 1; i >= common; i-- {
		ops = append(ops, Op{Op: "remove", Path: path + "/" + strconv.Itoa(i)})
	}
	for i := common; i < len(b); i++ {
		ops = append(ops, Op{Op: "add", Path: path + "/" + strconv.Itoa(i), Value: b[i]})
	}
	return ops
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RFC 6901 escaping.
func escapeKey(k string) string {
	k = strings.ReplaceAll(k, "~", "~0")
	return strings.ReplaceAll(k, "/", "~1")
}

func rootPath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
