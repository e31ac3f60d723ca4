package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKnowledgeSearcher struct {
	lastQuery string
	hits      []KnowledgeHit
	err       error
}

func (f *fakeKnowledgeSearcher) Search(_ context.Context, query string) ([]KnowledgeHit, error) {
	f.lastQuery = query
	return f.hits, f.err
}

func TestKnowledgeBaseLookupTool(t *testing.T) {
	searcher := &fakeKnowledgeSearcher{
		hits: []KnowledgeHit{
			{Source: "balance_sheet_2024.md", Content: "total assets 450M THB", Score: 0.91},
		},
	}
	fn, meta := NewKnowledgeBaseLookupTool(searcher, zap.NewNop())

	assert.Equal(t, "knowledge_base_lookup", meta.Schema.Name)

	out, err := fn(context.Background(), json.RawMessage(`{"query":"total assets"}`))
	require.NoError(t, err)
	assert.Equal(t, "total assets", searcher.lastQuery)

	var resp struct {
		Query string         `json:"query"`
		Hits  []KnowledgeHit `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "balance_sheet_2024.md", resp.Hits[0].Source)
	assert.InDelta(t, 0.91, resp.Hits[0].Score, 1e-9)
}

func TestKnowledgeBaseLookupTool_MissingQuery(t *testing.T) {
	fn, _ := NewKnowledgeBaseLookupTool(&fakeKnowledgeSearcher{}, zap.NewNop())

	_, err := fn(context.Background(), json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "query is required")
}

func TestKnowledgeBaseLookupTool_SearchError(t *testing.T) {
	searcher := &fakeKnowledgeSearcher{err: fmt.Errorf("index offline")}
	fn, _ := NewKnowledgeBaseLookupTool(searcher, zap.NewNop())

	_, err := fn(context.Background(), json.RawMessage(`{"query":"q"}`))
	assert.ErrorContains(t, err, "knowledge base lookup failed")
}

func TestRegisterKnowledgeBaseLookupTool(t *testing.T) {
	registry := NewDefaultRegistry(zap.NewNop())

	require.NoError(t, RegisterKnowledgeBaseLookupTool(registry, &fakeKnowledgeSearcher{}, zap.NewNop()))
	assert.True(t, registry.Has("knowledge_base_lookup"))
}
