package workmem

import (
	"context"
	"fmt"
)

// UnavailableStore 连接失败时的降级存储: 每个操作都返回当初的连接错误。
// 工具调用会把错误作为工具结果反馈给模型, 进程本身不中断。
type UnavailableStore struct {
	cause error
}

var _ Store = (*UnavailableStore)(nil)

// NewUnavailableStore 用连接失败原因创建降级存储。
func NewUnavailableStore(cause error) *UnavailableStore {
	if cause == nil {
		cause = fmt.Errorf("working memory backend unavailable")
	}
	return &UnavailableStore{cause: cause}
}

func (s *UnavailableStore) err() error {
	return fmt.Errorf("working memory unavailable: %w", s.cause)
}

func (s *UnavailableStore) Set(ctx context.Context, table, key, value string) error {
	return s.err()
}

func (s *UnavailableStore) Get(ctx context.Context, table, key string) (string, error) {
	return "", s.err()
}

func (s *UnavailableStore) Keys(ctx context.Context, table string) ([]string, error) {
	return nil, s.err()
}

func (s *UnavailableStore) DropTable(ctx context.Context, table string) error {
	return s.err()
}

func (s *UnavailableStore) Ping(ctx context.Context) error {
	return s.err()
}

func (s *UnavailableStore) Close() error {
	return nil
}
