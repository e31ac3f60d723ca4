package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatorCountTokensLatin(t *testing.T) {
	e := NewEstimatorTokenizer("claude-sonnet-4", 0)

	n, err := e.CountTokens("hello world, this is a test")
	require.NoError(t, err)
	// 27 个字符, 约 4 字符/token.
	assert.InDelta(t, 7, n, 2)

	n, err = e.CountTokens("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = e.CountTokens("a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEstimatorCountTokensDenseScripts(t *testing.T) {
	e := NewEstimatorTokenizer("claude-sonnet-4", 0)

	zh, err := e.CountTokens("财务分析报告")
	require.NoError(t, err)
	assert.Equal(t, 4, zh) // 6 个汉字, 约 1.5 字符/token

	th, err := e.CountTokens("บริษัท กมลโลหะกิจ จำกัด")
	require.NoError(t, err)
	latinOnly, err := e.CountTokens(strings.Repeat("a", len([]rune("บริษัท กมลโลหะกิจ จำกัด"))))
	require.NoError(t, err)
	assert.Greater(t, th, latinOnly, "thai text should count denser than latin of equal rune length")
}

func TestEstimatorCountMessages(t *testing.T) {
	e := NewEstimatorTokenizer("claude-sonnet-4", 0)

	msgs := []Message{
		{Role: "system", Content: "You are a financial analyst."},
		{Role: "user", Content: "Summarize the balance sheet."},
	}
	n, err := e.CountMessages(msgs)
	require.NoError(t, err)

	c1, _ := e.CountTokens(msgs[0].Content)
	c2, _ := e.CountTokens(msgs[1].Content)
	assert.Greater(t, n, c1+c2, "message framing overhead must be included")
}

func TestEstimatorEncodeDecode(t *testing.T) {
	e := NewEstimatorTokenizer("claude-sonnet-4", 0)

	tokens, err := e.Encode("four score and seven years")
	require.NoError(t, err)
	n, _ := e.CountTokens("four score and seven years")
	assert.Len(t, tokens, n)

	_, err = e.Decode(tokens)
	assert.Error(t, err, "estimator cannot reverse pseudo token ids")
}

func TestEstimatorDefaults(t *testing.T) {
	e := NewEstimatorTokenizer("claude-sonnet-4", 0)
	assert.Equal(t, 100000, e.MaxTokens())
	assert.Equal(t, "estimator", e.Name())

	e = NewEstimatorTokenizer("claude-sonnet-4", 200000)
	assert.Equal(t, 200000, e.MaxTokens())
}

func TestTiktokenModelTable(t *testing.T) {
	tk, err := NewTiktokenTokenizer("text-embedding-3-small")
	require.NoError(t, err)
	assert.Equal(t, 8191, tk.MaxTokens())
	assert.Equal(t, "tiktoken[cl100k_base]", tk.Name())

	// 前缀匹配: deepseek-chat-xyz 命中 deepseek-chat.
	tk, err = NewTiktokenTokenizer("deepseek-chat-20250324")
	require.NoError(t, err)
	assert.Equal(t, 64000, tk.MaxTokens())

	// 未知模型退回 cl100k_base 默认.
	tk, err = NewTiktokenTokenizer("some-unknown-model")
	require.NoError(t, err)
	assert.Equal(t, 8192, tk.MaxTokens())
}

func TestRegistryLookup(t *testing.T) {
	est := NewEstimatorTokenizer("my-model", 4096)
	RegisterTokenizer("my-model", est)

	got, err := GetTokenizer("my-model")
	require.NoError(t, err)
	assert.Equal(t, est, got)

	// 前缀匹配.
	got, err = GetTokenizer("my-model-v2")
	require.NoError(t, err)
	assert.Equal(t, est, got)

	_, err = GetTokenizer("never-registered")
	assert.Error(t, err)
}

func TestGetTokenizerOrEstimatorFallback(t *testing.T) {
	got := GetTokenizerOrEstimator("claude-model-without-registration")
	require.NotNil(t, got)
	assert.Equal(t, "estimator", got.Name())
}

func TestIsDenseScript(t *testing.T) {
	assert.True(t, isDenseScript('财'))
	assert.True(t, isDenseScript('の'))
	assert.True(t, isDenseScript('한'))
	assert.True(t, isDenseScript('บ'))
	assert.False(t, isDenseScript('a'))
	assert.False(t, isDenseScript('1'))
	assert.False(t, isDenseScript(' '))
}
