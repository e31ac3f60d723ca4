package kb

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupGormStore(t *testing.T, kbName string) (*GormVectorStore, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	store, err := NewGormVectorStore(db, kbName, zap.NewNop())
	require.NoError(t, err)
	return store, db
}

func TestNewGormVectorStore_RequiresName(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	_, err = NewGormVectorStore(db, "", zap.NewNop())
	require.Error(t, err)
}

func TestGormVectorStore_AddSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := setupGormStore(t, "financial-advisor-kb")

	docs := []Document{
		{
			ID:        "c1",
			Content:   "งบดุลประจำปีของบริษัท",
			Metadata:  map[string]any{"source_file": "balance.md", "chunk_index": 0},
			Embedding: []float64{1, 0, 0},
		},
		{
			ID:        "c2",
			Content:   "market news summary",
			Metadata:  map[string]any{"source_file": "news.txt", "chunk_index": 1},
			Embedding: []float64{0, 1, 0},
		},
	}
	require.NoError(t, store.AddDocuments(ctx, docs))

	results, err := store.Search(ctx, []float64{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	top := results[0]
	assert.Equal(t, "c1", top.Document.ID)
	assert.Equal(t, "งบดุลประจำปีของบริษัท", top.Document.Content)
	assert.Equal(t, "balance.md", top.Document.Metadata["source_file"])
	assert.InDelta(t, 1.0, top.Score, 1e-9)
}

func TestGormVectorStore_AddWithoutEmbedding(t *testing.T) {
	ctx := context.Background()
	store, _ := setupGormStore(t, "test-kb")

	err := store.AddDocuments(ctx, []Document{{ID: "bad", Content: "text"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding")
}

func TestGormVectorStore_IsolatedByKBName(t *testing.T) {
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	storeA, err := NewGormVectorStore(db, "kb-a", zap.NewNop())
	require.NoError(t, err)
	storeB, err := NewGormVectorStore(db, "kb-b", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, storeA.AddDocuments(ctx, []Document{
		{ID: "a1", Content: "alpha", Embedding: []float64{1, 0}},
	}))
	require.NoError(t, storeB.AddDocuments(ctx, []Document{
		{ID: "b1", Content: "beta", Embedding: []float64{0, 1}},
		{ID: "b2", Content: "gamma", Embedding: []float64{1, 1}},
	}))

	countA, err := storeA.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, countA)

	countB, err := storeB.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, countB)

	// 清空 A 不应影响 B
	require.NoError(t, storeA.ClearAll(ctx))

	countA, err = storeA.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, countA)

	countB, err = storeB.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, countB)
}

func TestGormVectorStore_DeleteDocuments(t *testing.T) {
	ctx := context.Background()
	store, _ := setupGormStore(t, "test-kb")

	require.NoError(t, store.AddDocuments(ctx, []Document{
		{ID: "keep", Content: "keep", Embedding: []float64{1, 0}},
		{ID: "drop", Content: "drop", Embedding: []float64{0, 1}},
	}))

	require.NoError(t, store.DeleteDocuments(ctx, []string{"drop"}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGormVectorStore_SearchSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	store, db := setupGormStore(t, "test-kb")

	require.NoError(t, store.AddDocuments(ctx, []Document{
		{ID: "good", Content: "ok", Embedding: []float64{1, 0}},
	}))

	// 手工插入坏记录: 嵌入列不是合法 JSON
	corrupt := ChunkRecord{
		ID:        "corrupt",
		KBName:    "test-kb",
		Content:   "broken",
		Embedding: "{not json",
	}
	require.NoError(t, db.Create(&corrupt).Error)

	results, err := store.Search(ctx, []float64{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].Document.ID)
}

func TestGormVectorStore_EmptySearch(t *testing.T) {
	ctx := context.Background()
	store, _ := setupGormStore(t, "empty-kb")

	results, err := store.Search(ctx, []float64{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
