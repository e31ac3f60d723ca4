package kb

// Document 知识库中的一篇文档（或文档切片后的一个块）。
// 入库前由嵌入提供者填充 Embedding 字段。
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float64      `json:"embedding,omitempty"`
}
