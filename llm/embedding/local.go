package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"time"
)

// LocalProvider 是无需外部服务的确定性嵌入提供者.
// 它把分词后的 FNV 哈希折叠进固定维度的向量并做 L2 归一化,
// 同一文本总是得到同一向量. 用于离线开发与测试环境;
// 检索质量远低于真实嵌入模型, 生产环境应配置 openai 提供者.
type LocalProvider struct {
	name       string
	dimensions int
}

// NewLocalProvider 创建本地确定性嵌入提供者.
func NewLocalProvider(cfg LocalConfig) *LocalProvider {
	dims := cfg.Dimensions
	if dims == 0 {
		dims = 256
	}
	return &LocalProvider{
		name:       "local-embedding",
		dimensions: dims,
	}
}

func (p *LocalProvider) Name() string      { return p.name }
func (p *LocalProvider) Dimensions() int   { return p.dimensions }
func (p *LocalProvider) MaxBatchSize() int { return 4096 }

// Embed 为给定输入生成确定性嵌入.
func (p *LocalProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dims := req.Dimensions
	if dims == 0 {
		dims = p.dimensions
	}

	embeddings := make([]EmbeddingData, len(req.Input))
	totalTokens := 0
	for i, text := range req.Input {
		vec, n := p.embedText(text, dims)
		totalTokens += n
		embeddings[i] = EmbeddingData{
			Index:     i,
			Embedding: vec,
			Object:    "embedding",
		}
	}

	return &EmbeddingResponse{
		Provider:   p.name,
		Model:      "local",
		Embeddings: embeddings,
		Usage: EmbeddingUsage{
			PromptTokens: totalTokens,
			TotalTokens:  totalTokens,
		},
		CreatedAt: time.Now(),
	}, nil
}

// EmbedQuery 嵌入单个查询.
func (p *LocalProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	resp, err := p.Embed(ctx, &EmbeddingRequest{Input: []string{query}, InputType: InputTypeQuery})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0].Embedding, nil
}

// EmbedDocuments 嵌入多个文档.
func (p *LocalProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	resp, err := p.Embed(ctx, &EmbeddingRequest{Input: documents, InputType: InputTypeDocument})
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Embedding
	}
	return out, nil
}

// embedText 将文本折叠为 dims 维单位向量, 同时返回 token 数.
func (p *LocalProvider) embedText(text string, dims int) ([]float64, int) {
	vec := make([]float64, dims)
	tokens := strings.Fields(strings.ToLower(text))
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(dims))
		// 次高位决定符号, 避免全部正向堆积.
		if sum&(1<<63) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, len(tokens)
}
