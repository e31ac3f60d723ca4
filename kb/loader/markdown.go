package loader

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/waritsan/fincrew/kb"
)

// MarkdownLoader 加载 Markdown 文件, 按标题切分:
// 每个标题小节成为一个文档, 标题保留在元数据中。
// 文件没有标题时整体作为单个文档返回。
type MarkdownLoader struct{}

// NewMarkdownLoader 创建 MarkdownLoader。
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{}
}

// Load 读取 Markdown 文件并按标题切分为文档。
func (l *MarkdownLoader) Load(ctx context.Context, source string) ([]kb.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("markdown loader: %w", err)
	}
	defer f.Close()

	baseName := filepath.Base(source)

	type section struct {
		heading string
		level   int
		lines   []string
	}

	var sections []section
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := scanner.Text()
		if heading, level := parseHeading(line); heading != "" {
			sections = append(sections, section{heading: heading, level: level})
		} else {
			if len(sections) == 0 {
				// 首个标题之前的内容归入前言小节
				sections = append(sections, section{heading: "", level: 0})
			}
			sections[len(sections)-1].lines = append(sections[len(sections)-1].lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("markdown loader: reading %s: %w", source, err)
	}

	if len(sections) == 0 {
		return []kb.Document{}, nil
	}

	docs := make([]kb.Document, 0, len(sections))
	for i, sec := range sections {
		content := strings.TrimSpace(strings.Join(sec.lines, "\n"))
		if content == "" && sec.heading == "" {
			continue
		}

		meta := map[string]any{
			"source_file":  baseName,
			"source_path":  source,
			"content_type": "text/markdown",
			"loader":       "markdown",
			"section":      i,
		}
		if sec.heading != "" {
			meta["heading"] = sec.heading
			meta["heading_level"] = sec.level
		}

		docs = append(docs, kb.Document{
			ID:       fmt.Sprintf("%s#%d", source, i),
			Content:  content,
			Metadata: meta,
		})
	}

	return docs, nil
}

// parseHeading 识别 ATX 风格标题（# Heading）,
// 返回标题文本和级别（1-6）, 非标题返回 ("", 0)。
func parseHeading(line string) (heading string, level int) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", 0
	}
	level = 0
	for _, ch := range trimmed {
		if ch == '#' {
			level++
		} else {
			break
		}
	}
	if level < 1 || level > 6 {
		return "", 0
	}
	heading = strings.TrimSpace(trimmed[level:])
	if heading == "" {
		return "", 0
	}
	return heading, level
}

// SupportedTypes 返回 MarkdownLoader 处理的扩展名。
func (l *MarkdownLoader) SupportedTypes() []string {
	return []string{".md"}
}
