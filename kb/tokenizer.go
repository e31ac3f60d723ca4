package kb

import (
	"fmt"

	"go.uber.org/zap"

	lltok "github.com/waritsan/fincrew/llm/tokenizer"
)

// Tokenizer 分块器使用的 token 计数接口。
type Tokenizer interface {
	CountTokens(text string) int
}

// LLMTokenizerAdapter 将 llm/tokenizer.Tokenizer 适配为 kb.Tokenizer。
// 底层分词器返回 error 时回退到字符估算并记录警告日志。
type LLMTokenizerAdapter struct {
	inner  lltok.Tokenizer
	logger *zap.Logger
}

// NewLLMTokenizerAdapter 创建适配器。
func NewLLMTokenizerAdapter(inner lltok.Tokenizer, logger *zap.Logger) *LLMTokenizerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMTokenizerAdapter{inner: inner, logger: logger}
}

// CountTokens 返回文本的 token 数, 出错时按 len(text)/4 估算。
func (a *LLMTokenizerAdapter) CountTokens(text string) int {
	count, err := a.inner.CountTokens(text)
	if err != nil {
		a.logger.Warn("tokenizer CountTokens failed, falling back to estimate",
			zap.Error(err))
		return len(text) / charsPerToken
	}
	return count
}

// NewTiktokenAdapter 创建基于 tiktoken 编码的 kb.Tokenizer。
// model 指定 tiktoken 模型（如 "gpt-4o", "gpt-4", "gpt-3.5-turbo"）。
func NewTiktokenAdapter(model string, logger *zap.Logger) (Tokenizer, error) {
	tok, err := lltok.NewTiktokenTokenizer(model)
	if err != nil {
		return nil, fmt.Errorf("create tiktoken tokenizer: %w", err)
	}
	return NewLLMTokenizerAdapter(tok, logger), nil
}

// NewEstimatorAdapter 创建基于启发式估算器的 kb.Tokenizer。
// CJK/泰文等密集文字按字符计数, 无需下载编码数据, 适合离线环境。
func NewEstimatorAdapter(model string, logger *zap.Logger) Tokenizer {
	est := lltok.NewEstimatorTokenizer(model, 0)
	return NewLLMTokenizerAdapter(est, logger)
}
