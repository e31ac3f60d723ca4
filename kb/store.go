package kb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// =============================================================================
// 📦 向量存储接口
// =============================================================================

// VectorStore 向量索引统一接口。
type VectorStore interface {
	// AddDocuments 添加文档, 所有文档必须已带嵌入。
	AddDocuments(ctx context.Context, docs []Document) error

	// Search 按余弦相似度检索 Top-K 文档。
	Search(ctx context.Context, queryEmbedding []float64, topK int) ([]SearchResult, error)

	// DeleteDocuments 按 ID 删除文档。
	DeleteDocuments(ctx context.Context, ids []string) error

	// Count 返回已索引的文档数量。
	Count(ctx context.Context) (int, error)
}

// Clearable 可选接口: 支持整体清空的实现。用类型断言探测:
//
//	if c, ok := store.(Clearable); ok { c.ClearAll(ctx) }
type Clearable interface {
	ClearAll(ctx context.Context) error
}

// SearchResult 向量检索结果。
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
	Distance float64  `json:"distance"`
}

// =============================================================================
// 🧪 内存向量存储（测试与小规模场景）
// =============================================================================

// InMemoryVectorStore 内存向量存储。
type InMemoryVectorStore struct {
	documents []Document
	mu        sync.RWMutex
	logger    *zap.Logger
}

var (
	_ VectorStore = (*InMemoryVectorStore)(nil)
	_ Clearable   = (*InMemoryVectorStore)(nil)
)

// NewInMemoryVectorStore 创建内存向量存储。
func NewInMemoryVectorStore(logger *zap.Logger) *InMemoryVectorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryVectorStore{
		documents: make([]Document, 0),
		logger:    logger.With(zap.String("component", "kb.store.memory")),
	}
}

// AddDocuments 添加文档。
func (s *InMemoryVectorStore) AddDocuments(ctx context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		if doc.Embedding == nil {
			return fmt.Errorf("document %s has no embedding", doc.ID)
		}
		s.documents = append(s.documents, doc)
	}

	s.logger.Debug("documents added to vector store",
		zap.Int("count", len(docs)),
		zap.Int("total", len(s.documents)))

	return nil
}

// Search 按余弦相似度检索。
func (s *InMemoryVectorStore) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.documents) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(s.documents))
	for _, doc := range s.documents {
		if doc.Embedding == nil {
			continue
		}

		similarity := cosineSimilarity(queryEmbedding, doc.Embedding)
		results = append(results, SearchResult{
			Document: doc,
			Score:    similarity,
			Distance: 1.0 - similarity,
		})
	}

	sortByScore(results)

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// DeleteDocuments 按 ID 删除文档。
func (s *InMemoryVectorStore) DeleteDocuments(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	filtered := make([]Document, 0, len(s.documents))
	for _, doc := range s.documents {
		if !idSet[doc.ID] {
			filtered = append(filtered, doc)
		}
	}

	deleted := len(s.documents) - len(filtered)
	s.documents = filtered

	s.logger.Debug("documents deleted from vector store",
		zap.Int("deleted", deleted),
		zap.Int("remaining", len(s.documents)))

	return nil
}

// Count 返回文档数量。
func (s *InMemoryVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

// ClearAll 清空全部文档。
func (s *InMemoryVectorStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make([]Document, 0)
	s.logger.Debug("all documents cleared from vector store")
	return nil
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// cosineSimilarity 计算余弦相似度, 维度不符或零向量时返回 0。
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortByScore 按相似度降序排序。
func sortByScore(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
