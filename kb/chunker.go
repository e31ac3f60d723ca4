package kb

import (
	"strings"

	"go.uber.org/zap"
)

// charsPerToken 粗略估算: 1 token ≈ 4 个字符。
const charsPerToken = 4

// ChunkingConfig 分块配置。
type ChunkingConfig struct {
	// 块大小上限（tokens）
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// 相邻块之间的重叠（tokens）
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	// 小于该 token 数的尾块被丢弃
	MinChunkSize int `yaml:"min_chunk_size" json:"min_chunk_size"`
}

// DefaultChunkingConfig 返回默认分块配置。
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		ChunkSize:    400,
		ChunkOverlap: 50,
		MinChunkSize: 20,
	}
}

// Chunk 文档块。
type Chunk struct {
	Content    string         `json:"content"`
	StartPos   int            `json:"start_pos"`
	EndPos     int            `json:"end_pos"`
	TokenCount int            `json:"token_count"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// 分隔符优先级: 段落 > 行 > 句子 > 空格。
var chunkSeparators = []string{"\n\n", "\n", ". ", "。", "! ", "！", "? ", "？", " "}

// DocumentChunker 按 token 预算递归分块文档,
// 在段落/句子边界分割以保持语义完整。
type DocumentChunker struct {
	config    ChunkingConfig
	tokenizer Tokenizer
	logger    *zap.Logger
}

// NewDocumentChunker 创建文档分块器。
func NewDocumentChunker(config ChunkingConfig, tokenizer Tokenizer, logger *zap.Logger) *DocumentChunker {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkingConfig().ChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentChunker{
		config:    config,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// ChunkDocument 分块文档。空文档返回 nil。
// 整篇文档未超过块大小时原样返回单块, 不受 MinChunkSize 约束。
func (c *DocumentChunker) ChunkDocument(doc Document) []Chunk {
	content := doc.Content
	if strings.TrimSpace(content) == "" {
		return nil
	}

	if c.tokenizer.CountTokens(content) <= c.config.ChunkSize {
		return []Chunk{c.newChunk(content, 0)}
	}

	chunks := c.recursiveSplit(content, chunkSeparators, 0)

	// 丢弃纯空白的块
	filtered := chunks[:0]
	for _, chunk := range chunks {
		if chunk.Content != "" {
			filtered = append(filtered, chunk)
		}
	}
	chunks = filtered

	if c.config.ChunkOverlap > 0 {
		chunks = c.addOverlap(chunks)
	}

	c.logger.Debug("document chunked",
		zap.String("doc_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", c.config.ChunkSize),
		zap.Int("overlap", c.config.ChunkOverlap))

	return chunks
}

// recursiveSplit 递归分割: 先按当前分隔符累积到块预算,
// 单个片段仍超限时降级到下一优先级的分隔符。
func (c *DocumentChunker) recursiveSplit(text string, separators []string, startPos int) []Chunk {
	if len(separators) == 0 {
		// 最后一级: 按字符分割（句子边界感知）
		return c.splitByBoundary(text, startPos)
	}

	separator := separators[0]
	parts := strings.Split(text, separator)

	var chunks []Chunk
	currentChunk := ""
	currentStart := startPos

	for i, part := range parts {
		// 恢复分隔符（最后一个片段除外）
		if i < len(parts)-1 {
			part += separator
		}

		merged := currentChunk + part
		if c.tokenizer.CountTokens(merged) <= c.config.ChunkSize {
			currentChunk = merged
			continue
		}

		// 当前块已满: 回退到句子边界后落块, 余下部分并入后续内容
		if currentChunk != "" {
			final := c.adjustToSentenceBoundary(currentChunk)
			chunks = append(chunks, c.newChunk(final, currentStart))
			currentStart += len(final)
			currentChunk = currentChunk[len(final):] + part
		} else {
			currentChunk = part
		}

		// 累积内容本身超限时用下一级分隔符继续切
		if c.tokenizer.CountTokens(currentChunk) > c.config.ChunkSize {
			sub := c.recursiveSplit(currentChunk, separators[1:], currentStart)
			chunks = append(chunks, sub...)
			currentStart += len(currentChunk)
			currentChunk = ""
		}
	}

	// 尾块: 低于 MinChunkSize 时丢弃
	if currentChunk != "" && c.tokenizer.CountTokens(currentChunk) >= c.config.MinChunkSize {
		chunks = append(chunks, c.newChunk(currentChunk, currentStart))
	}

	return chunks
}

// splitByBoundary 按字符分割（最后手段）, 尽量在句末断开。
func (c *DocumentChunker) splitByBoundary(text string, startPos int) []Chunk {
	var chunks []Chunk
	runes := []rune(text)
	charsPerChunk := c.config.ChunkSize * charsPerToken

	for i := 0; i < len(runes); {
		end := i + charsPerChunk
		if end > len(runes) {
			end = len(runes)
		}

		segment := string(runes[i:end])
		if end < len(runes) {
			segment = c.adjustToSentenceBoundary(segment)
		}

		chunks = append(chunks, c.newChunk(segment, startPos+i))
		i += len([]rune(segment))
	}

	return chunks
}

// adjustToSentenceBoundary 从末尾向前找最近的句子边界,
// 只在后半部分查找, 避免块缩得过短。找不到时返回原文。
func (c *DocumentChunker) adjustToSentenceBoundary(text string) string {
	if len(text) == 0 {
		return text
	}

	sentenceEnders := []rune{'.', '。', '!', '！', '?', '？', '\n'}

	runes := []rune(text)
	for i := len(runes) - 1; i >= len(runes)/2; i-- {
		for _, ender := range sentenceEnders {
			if runes[i] == ender {
				return string(runes[:i+1])
			}
		}
	}

	// 退而求其次: 找空白
	for i := len(runes) - 1; i >= len(runes)/2; i-- {
		if runes[i] == ' ' || runes[i] == '\t' {
			return string(runes[:i])
		}
	}

	return text
}

// addOverlap 把前一块的尾部（按 rune 截取, 泰文/中文安全）
// 拼接到后一块的开头。
func (c *DocumentChunker) addOverlap(chunks []Chunk) []Chunk {
	if len(chunks) <= 1 {
		return chunks
	}

	overlapChars := c.config.ChunkOverlap * charsPerToken
	overlapped := make([]Chunk, len(chunks))
	overlapped[0] = chunks[0]

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		start := len(prev) - overlapChars
		if start < 0 {
			start = 0
		}

		chunk := chunks[i]
		chunk.Content = string(prev[start:]) + chunk.Content
		chunk.TokenCount = c.tokenizer.CountTokens(chunk.Content)
		overlapped[i] = chunk
	}

	return overlapped
}

func (c *DocumentChunker) newChunk(text string, start int) Chunk {
	trimmed := strings.TrimSpace(text)
	return Chunk{
		Content:    trimmed,
		StartPos:   start,
		EndPos:     start + len(text),
		TokenCount: c.tokenizer.CountTokens(trimmed),
	}
}
