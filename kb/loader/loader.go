package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/waritsan/fincrew/kb"
)

// DocumentLoader 从单一来源加载文档的统一接口。
type DocumentLoader interface {
	// Load 读取来源并返回文档, source 通常是文件路径。
	Load(ctx context.Context, source string) ([]kb.Document, error)

	// SupportedTypes 返回该加载器处理的文件扩展名（如 ".txt", ".md"）。
	SupportedTypes() []string
}

// LoaderRegistry 按文件扩展名把 Load 调用路由到对应的 DocumentLoader。
type LoaderRegistry struct {
	mu      sync.RWMutex
	loaders map[string]DocumentLoader // 扩展名（小写, 带点）-> 加载器
}

// NewLoaderRegistry 创建预注册内置加载器的注册表。
func NewLoaderRegistry() *LoaderRegistry {
	r := &LoaderRegistry{
		loaders: make(map[string]DocumentLoader),
	}

	builtins := []DocumentLoader{
		NewTextLoader(),
		NewMarkdownLoader(),
		NewCSVLoader(CSVLoaderConfig{}),
	}
	for _, l := range builtins {
		for _, ext := range l.SupportedTypes() {
			r.loaders[strings.ToLower(ext)] = l
		}
	}

	return r
}

// Register 为给定扩展名添加或替换加载器。
// ext 需带前导点（如 ".pdf"）。
func (r *LoaderRegistry) Register(ext string, loader DocumentLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[strings.ToLower(ext)] = loader
}

// Load 根据来源的扩展名选择加载器并委托。
func (r *LoaderRegistry) Load(ctx context.Context, source string) ([]kb.Document, error) {
	ext := strings.ToLower(filepath.Ext(source))
	if ext == "" {
		return nil, fmt.Errorf("loader: cannot determine file type for %q (no extension)", source)
	}

	r.mu.RLock()
	l, ok := r.loaders[ext]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("loader: no loader registered for extension %q", ext)
	}

	return l.Load(ctx, source)
}

// SupportedTypes 返回全部已注册的扩展名, 已排序。
func (r *LoaderRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
