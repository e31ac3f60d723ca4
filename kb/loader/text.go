package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/waritsan/fincrew/kb"
)

// TextLoader 把纯文本文件加载为单个文档。
type TextLoader struct{}

// NewTextLoader 创建 TextLoader。
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load 读取文本文件并作为单个文档返回。
func (l *TextLoader) Load(ctx context.Context, source string) ([]kb.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("text loader: %w", err)
	}

	doc := kb.Document{
		ID:      source,
		Content: string(data),
		Metadata: map[string]any{
			"source_file":  filepath.Base(source),
			"source_path":  source,
			"content_type": "text/plain",
			"loader":       "text",
		},
	}

	return []kb.Document{doc}, nil
}

// SupportedTypes 返回 TextLoader 处理的扩展名。
func (l *TextLoader) SupportedTypes() []string {
	return []string{".txt"}
}
