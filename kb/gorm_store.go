package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// =============================================================================
// 💾 GORM 持久化向量存储
// =============================================================================

// ChunkRecord 持久化的文档块, 嵌入向量与元数据以 JSON 文本列存储,
// 兼容 sqlite/postgres/mysql 三种方言。
type ChunkRecord struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	KBName    string    `gorm:"size:255;not null;index:idx_kb_chunks_kb_name" json:"kb_name"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Metadata  string    `gorm:"type:text" json:"metadata"`
	Embedding string    `gorm:"type:text;not null" json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChunkRecord) TableName() string {
	return "kb_chunks"
}

// GormVectorStore 把向量索引持久化到关系库。
// 检索时全量加载本知识库的块在内存中算余弦相似度,
// CLI 规模的知识库（千级块）足够。
type GormVectorStore struct {
	db     *gorm.DB
	kbName string
	logger *zap.Logger
}

var (
	_ VectorStore = (*GormVectorStore)(nil)
	_ Clearable   = (*GormVectorStore)(nil)
)

// NewGormVectorStore 创建持久化向量存储, 表结构缺失时自动迁移。
// kbName 限定本实例可见的块范围。
func NewGormVectorStore(db *gorm.DB, kbName string, logger *zap.Logger) (*GormVectorStore, error) {
	if kbName == "" {
		return nil, fmt.Errorf("kb name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := db.AutoMigrate(&ChunkRecord{}); err != nil {
		return nil, fmt.Errorf("migrate kb_chunks table: %w", err)
	}

	return &GormVectorStore{
		db:     db,
		kbName: kbName,
		logger: logger.With(zap.String("component", "kb.store.gorm"), zap.String("kb", kbName)),
	}, nil
}

// AddDocuments 批量写入文档块。
func (s *GormVectorStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	records := make([]ChunkRecord, 0, len(docs))
	for _, doc := range docs {
		if doc.Embedding == nil {
			return fmt.Errorf("document %s has no embedding", doc.ID)
		}

		embJSON, err := json.Marshal(doc.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding for %s: %w", doc.ID, err)
		}

		metaJSON := ""
		if doc.Metadata != nil {
			b, err := json.Marshal(doc.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata for %s: %w", doc.ID, err)
			}
			metaJSON = string(b)
		}

		records = append(records, ChunkRecord{
			ID:        doc.ID,
			KBName:    s.kbName,
			Content:   doc.Content,
			Metadata:  metaJSON,
			Embedding: string(embJSON),
		})
	}

	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("insert %d chunks: %w", len(records), err)
	}

	s.logger.Debug("chunks persisted", zap.Int("count", len(records)))
	return nil
}

// Search 加载本知识库全部块并按余弦相似度排序取 Top-K。
func (s *GormVectorStore) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]SearchResult, error) {
	var records []ChunkRecord
	err := s.db.WithContext(ctx).
		Where("kb_name = ?", s.kbName).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	if len(records) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(records))
	for _, rec := range records {
		doc, err := rec.toDocument()
		if err != nil {
			s.logger.Warn("skipping undecodable chunk",
				zap.String("id", rec.ID),
				zap.Error(err))
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

// DeleteDocuments 按 ID 删除本知识库的块。
func (s *GormVectorStore) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).
		Where("kb_name = ? AND id IN ?", s.kbName, ids).
		Delete(&ChunkRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete chunks: %w", res.Error)
	}

	s.logger.Debug("chunks deleted", zap.Int64("deleted", res.RowsAffected))
	return nil
}

// Count 返回本知识库的块数量。
func (s *GormVectorStore) Count(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&ChunkRecord{}).
		Where("kb_name = ?", s.kbName).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return int(count), nil
}

// ClearAll 清空本知识库的全部块（不触碰其他知识库）。
func (s *GormVectorStore) ClearAll(ctx context.Context) error {
	res := s.db.WithContext(ctx).
		Where("kb_name = ?", s.kbName).
		Delete(&ChunkRecord{})
	if res.Error != nil {
		return fmt.Errorf("clear chunks: %w", res.Error)
	}

	s.logger.Debug("knowledge base index cleared", zap.Int64("deleted", res.RowsAffected))
	return nil
}

// toDocument 反序列化为 Document。
func (rec ChunkRecord) toDocument() (Document, error) {
	var embedding []float64
	if err := json.Unmarshal([]byte(rec.Embedding), &embedding); err != nil {
		return Document{}, fmt.Errorf("unmarshal embedding: %w", err)
	}

	var metadata map[string]any
	if rec.Metadata != "" {
		if err := json.Unmarshal([]byte(rec.Metadata), &metadata); err != nil {
			return Document{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return Document{
		ID:        rec.ID,
		Content:   rec.Content,
		Metadata:  metadata,
		Embedding: embedding,
	}, nil
}
