package kb

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/waritsan/fincrew/llm/embedding"
)

// =============================================================================
// 📚 知识库管理器
// =============================================================================

// SourceLoader 文档来源加载器, 由 kb/loader.LoaderRegistry 实现。
type SourceLoader interface {
	// Load 从文件路径加载文档。
	Load(ctx context.Context, source string) ([]Document, error)

	// SupportedTypes 返回可处理的文件扩展名（带点, 小写）。
	SupportedTypes() []string
}

// KnowledgeBaseRecord 知识库注册记录。
type KnowledgeBaseRecord struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description   string     `gorm:"type:text" json:"description"`
	SourceDir     string     `gorm:"size:500" json:"source_dir"`
	DocumentCount int        `gorm:"default:0" json:"document_count"`
	ChunkCount    int        `gorm:"default:0" json:"chunk_count"`
	LastSyncAt    *time.Time `json:"last_sync_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (KnowledgeBaseRecord) TableName() string {
	return "knowledge_bases"
}

// ManagerConfig 管理器配置。
type ManagerConfig struct {
	// 知识库名称（唯一）
	Name string
	// 描述, 仅首次注册时写入
	Description string
	// 文档来源目录, 同步时递归扫描
	SourceDir string
	// 相对 SourceDir 的通配过滤（斜杠分隔）, 为空时收录全部受支持文件
	PrefixGlob string
	// 检索返回的块数量
	TopK int
	// 相似度下限, 低于该值的结果被丢弃
	MinScore float64
	// 同步时并发嵌入的批次数
	SyncConcurrency int
}

// SyncStats 一次同步的统计。
type SyncStats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// Manager 知识库管理器: 注册记录 + 文档加载 + 分块 + 嵌入 + 向量索引。
type Manager struct {
	db       *gorm.DB
	store    VectorStore
	embedder embedding.Provider
	chunker  *DocumentChunker
	loader   SourceLoader
	config   ManagerConfig
	logger   *zap.Logger
}

// NewManager 创建知识库管理器。
func NewManager(db *gorm.DB, store VectorStore, embedder embedding.Provider, chunker *DocumentChunker, loader SourceLoader, config ManagerConfig, logger *zap.Logger) (*Manager, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("knowledge base name is required")
	}
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if config.SyncConcurrency <= 0 {
		config.SyncConcurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := db.AutoMigrate(&KnowledgeBaseRecord{}); err != nil {
		return nil, fmt.Errorf("migrate knowledge_bases table: %w", err)
	}

	return &Manager{
		db:       db,
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		loader:   loader,
		config:   config,
		logger:   logger.With(zap.String("component", "kb"), zap.String("kb", config.Name)),
	}, nil
}

// Name 返回知识库名称。
func (m *Manager) Name() string {
	return m.config.Name
}

// =============================================================================
// 🎯 核心操作
// =============================================================================

// CreateOrRetrieve 按名称取回知识库记录, 不存在则注册。
// 返回记录和"本次是否新建"。
func (m *Manager) CreateOrRetrieve(ctx context.Context) (*KnowledgeBaseRecord, bool, error) {
	var rec KnowledgeBaseRecord
	res := m.db.WithContext(ctx).
		Where(KnowledgeBaseRecord{Name: m.config.Name}).
		Attrs(KnowledgeBaseRecord{
			Description: m.config.Description,
			SourceDir:   m.config.SourceDir,
		}).
		FirstOrCreate(&rec)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create or retrieve knowledge base %s: %w", m.config.Name, res.Error)
	}

	created := res.RowsAffected > 0
	if created {
		m.logger.Info("knowledge base registered", zap.String("source_dir", m.config.SourceDir))
	} else {
		m.logger.Info("knowledge base retrieved",
			zap.Int("document_count", rec.DocumentCount),
			zap.Int("chunk_count", rec.ChunkCount))
	}

	return &rec, created, nil
}

// Sync 重建索引: 扫描来源目录, 加载、分块、嵌入、入库, 并更新注册记录。
// 来源目录缺失或为空时返回零统计而不报错, 单个文件的失败只记日志。
func (m *Manager) Sync(ctx context.Context) (*SyncStats, error) {
	files, err := m.collectSourceFiles()
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		m.logger.Warn("no source documents found", zap.String("source_dir", m.config.SourceDir))
		if err := m.updateSyncRecord(ctx, 0, 0); err != nil {
			return nil, err
		}
		return &SyncStats{}, nil
	}

	// 加载 + 分块
	docCount := 0
	var chunkDocs []Document
	for _, file := range files {
		docs, err := m.loader.Load(ctx, file)
		if err != nil {
			m.logger.Warn("failed to load source file, skipping",
				zap.String("file", file),
				zap.Error(err))
			continue
		}
		docCount++

		for _, doc := range docs {
			for i, chunk := range m.chunker.ChunkDocument(doc) {
				meta := make(map[string]any, len(doc.Metadata)+2)
				for k, v := range doc.Metadata {
					meta[k] = v
				}
				meta["chunk_index"] = i
				meta["token_count"] = chunk.TokenCount

				chunkDocs = append(chunkDocs, Document{
					ID:       uuid.NewString(),
					Content:  chunk.Content,
					Metadata: meta,
				})
			}
		}
	}

	// 并发嵌入
	if err := m.embedChunks(ctx, chunkDocs); err != nil {
		return nil, err
	}

	// 重建索引: 先清空旧块再写入
	if clearable, ok := m.store.(Clearable); ok {
		if err := clearable.ClearAll(ctx); err != nil {
			return nil, fmt.Errorf("clear previous index: %w", err)
		}
	}
	if err := m.store.AddDocuments(ctx, chunkDocs); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	if err := m.updateSyncRecord(ctx, docCount, len(chunkDocs)); err != nil {
		return nil, err
	}

	m.logger.Info("knowledge base synchronized",
		zap.Int("documents", docCount),
		zap.Int("chunks", len(chunkDocs)))

	return &SyncStats{Documents: docCount, Chunks: len(chunkDocs)}, nil
}

// Query 嵌入查询文本并检索 Top-K, 过滤掉低于 MinScore 的结果。
func (m *Manager) Query(ctx context.Context, query string) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty")
	}

	queryEmbedding, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := m.store.Search(ctx, queryEmbedding, m.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("search knowledge base: %w", err)
	}

	if m.config.MinScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score >= m.config.MinScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	m.logger.Debug("knowledge base queried",
		zap.Int("hits", len(results)),
		zap.Int("top_k", m.config.TopK))

	return results, nil
}

// Delete 删除知识库: 清空索引块并移除注册记录。
// 只删除索引数据, 来源文档不受影响。记录不存在时不视为错误。
func (m *Manager) Delete(ctx context.Context) error {
	if clearable, ok := m.store.(Clearable); ok {
		if err := clearable.ClearAll(ctx); err != nil {
			return fmt.Errorf("clear knowledge base index: %w", err)
		}
	} else {
		m.logger.Warn("vector store does not support ClearAll, index left in place")
	}

	res := m.db.WithContext(ctx).
		Where("name = ?", m.config.Name).
		Delete(&KnowledgeBaseRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete knowledge base record %s: %w", m.config.Name, res.Error)
	}

	if res.RowsAffected == 0 {
		m.logger.Info("knowledge base record not found, nothing to delete")
	} else {
		m.logger.Info("knowledge base deleted")
	}

	return nil
}

// =============================================================================
// 🔧 内部方法
// =============================================================================

// collectSourceFiles 递归收集来源目录下受支持的文件, 排序保证同步顺序稳定。
func (m *Manager) collectSourceFiles() ([]string, error) {
	if m.config.SourceDir == "" {
		return nil, nil
	}

	if _, err := os.Stat(m.config.SourceDir); os.IsNotExist(err) {
		return nil, nil
	}

	supported := make(map[string]bool)
	for _, ext := range m.loader.SupportedTypes() {
		supported[ext] = true
	}

	var files []string
	err := filepath.WalkDir(m.config.SourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !supported[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		if m.config.PrefixGlob != "" {
			rel, err := filepath.Rel(m.config.SourceDir, p)
			if err != nil {
				return err
			}
			ok, err := path.Match(m.config.PrefixGlob, filepath.ToSlash(rel))
			if err != nil {
				return fmt.Errorf("invalid prefix glob %q: %w", m.config.PrefixGlob, err)
			}
			if !ok {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan source dir %s: %w", m.config.SourceDir, err)
	}

	sort.Strings(files)
	return files, nil
}

// embedChunks 分批并发嵌入, 嵌入结果按位置写回各自的批次区间。
func (m *Manager) embedChunks(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	batchSize := m.embedder.MaxBatchSize()
	if batchSize <= 0 || batchSize > 64 {
		batchSize = 64
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.SyncConcurrency)

	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, doc := range batch {
				texts[i] = doc.Content
			}

			embeddings, err := m.embedder.EmbedDocuments(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch of %d chunks: %w", len(batch), err)
			}
			if len(embeddings) != len(batch) {
				return fmt.Errorf("embedder returned %d embeddings for %d chunks", len(embeddings), len(batch))
			}

			for i := range batch {
				batch[i].Embedding = embeddings[i]
			}
			return nil
		})
	}

	return g.Wait()
}

// updateSyncRecord 更新注册记录的统计与同步时间。
func (m *Manager) updateSyncRecord(ctx context.Context, docCount, chunkCount int) error {
	now := time.Now()
	err := m.db.WithContext(ctx).
		Model(&KnowledgeBaseRecord{}).
		Where("name = ?", m.config.Name).
		Updates(map[string]any{
			"document_count": docCount,
			"chunk_count":    chunkCount,
			"last_sync_at":   &now,
		}).Error
	if err != nil {
		return fmt.Errorf("update knowledge base record: %w", err)
	}
	return nil
}
