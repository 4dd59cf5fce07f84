package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type claimView struct {
	Status string   `json:"status"`
	Notes  string   `json:"notes,omitempty"`
	Docs   []string `json:"docs"`
}

func TestDiffReportsChangedFields(t *testing.T) {
	before := Of(claimView{Status: "draft", Docs: []string{"a.pdf"}})
	after := Of(claimView{Status: "submitted", Notes: "sent", Docs: []string{"a.pdf", "b/c.pdf"}})

	ops := Diff(before, after)
	require.Len(t, ops, 3)
	assert.Equal(t, Op{Op: "add", Path: "/docs/1", Value: "b/c.pdf"}, ops[0])
	assert.Equal(t, Op{Op: "add", Path: "/notes", Value: "sent"}, ops[1])
	assert.Equal(t, Op{Op: "replace", Path: "/status", Value: "submitted"}, ops[2])
}

func TestDiffRemovalsAndEscaping(t *testing.T) {
	a := map[string]any{"a/b": 1.0, "gone": true}
	b := map[string]any{"a/b": 2.0}

	ops := Diff(a, b)
	require.Len(t, ops, 2)
	assert.Equal(t, "remove", ops[0].Op)
	assert.Equal(t, "/gone", ops[0].Path)
	assert.Equal(t, "/a~1b", ops[1].Path)
}

func TestDiffIdenticalIsEmpty(t *testing.T) {
	v := Of(claimView{Status: "draft"})
	assert.Empty(t, Diff(v, v))
	assert.Empty(t, Diff(nil, nil))
	assert.Equal(t, []Op{{Op: "replace", Path: "/", Value: "x"}}, Diff(nil, "x"))
}

func TestOfUnencodable(t *testing.T) {
	assert.Nil(t, Of(make(chan int)))
	assert.Nil(t, Of(nil))
}
