package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/waritsan/fincrew/kb"
)

// CSVLoaderConfig 配置 CSV 加载器。
type CSVLoaderConfig struct {
	// 字段分隔符, 默认 ','。
	Delimiter rune
	// 每个文档包含的数据行数, 0 或 1 表示逐行成档。
	RowsPerDocument int
	// 纳入文档内容的列名（按表头匹配）, 为空时拼接全部列。
	ContentColumns []string
}

// CSVLoader 加载 CSV 文件, 首行视为表头,
// 每行（或每组行）成为一个文档。
type CSVLoader struct {
	config CSVLoaderConfig
}

// NewCSVLoader 创建 CSVLoader。
func NewCSVLoader(config CSVLoaderConfig) *CSVLoader {
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	if config.RowsPerDocument <= 0 {
		config.RowsPerDocument = 1
	}
	return &CSVLoader{config: config}
}

// Load 读取 CSV 文件并返回文档。
func (l *CSVLoader) Load(ctx context.Context, source string) ([]kb.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("csv loader: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = l.config.Delimiter
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv loader: parsing %s: %w", source, err)
	}

	if len(records) < 2 {
		// 只有表头或空文件
		return []kb.Document{}, nil
	}

	header := records[0]
	dataRows := records[1:]
	baseName := filepath.Base(source)

	contentIndices := l.resolveContentColumns(header)

	var docs []kb.Document
	for i := 0; i < len(dataRows); i += l.config.RowsPerDocument {
		end := i + l.config.RowsPerDocument
		if end > len(dataRows) {
			end = len(dataRows)
		}
		group := dataRows[i:end]

		var contentParts []string
		for _, row := range group {
			var parts []string
			for _, idx := range contentIndices {
				if idx < len(row) {
					parts = append(parts, row[idx])
				}
			}
			contentParts = append(contentParts, strings.Join(parts, " "))
		}

		docs = append(docs, kb.Document{
			ID:      fmt.Sprintf("%s#row%d", source, i),
			Content: strings.Join(contentParts, "\n"),
			Metadata: map[string]any{
				"source_file":  baseName,
				"source_path":  source,
				"content_type": "text/csv",
				"loader":       "csv",
				"row_start":    i,
				"row_end":      end - 1,
				"columns":      header,
			},
		})
	}

	return docs, nil
}

// resolveContentColumns 解析纳入内容的列索引, 无匹配时回退全部列。
func (l *CSVLoader) resolveContentColumns(header []string) []int {
	if len(l.config.ContentColumns) == 0 {
		indices := make([]int, len(header))
		for i := range header {
			indices[i] = i
		}
		return indices
	}

	wanted := make(map[string]bool, len(l.config.ContentColumns))
	for _, col := range l.config.ContentColumns {
		wanted[strings.ToLower(col)] = true
	}

	var indices []int
	for i, h := range header {
		if wanted[strings.ToLower(h)] {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		indices = make([]int, len(header))
		for i := range header {
			indices[i] = i
		}
	}
	return indices
}

// SupportedTypes 返回 CSVLoader 处理的扩展名。
func (l *CSVLoader) SupportedTypes() []string {
	return []string{".csv"}
}
