package workmem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/waritsan/fincrew/internal/tlsutil"
)

// =============================================================================
// 🧠 工作记忆存储
// =============================================================================

// Store 工作记忆表的抽象。一次运行对应一张表,
// 各智能体通过表内键值对共享中间状态。
type Store interface {
	// Set 写入表中的一个键值对, 表不存在时自动创建
	Set(ctx context.Context, table, key, value string) error

	// Get 读取表中的一个键, 键不存在时返回 ErrKeyNotFound
	Get(ctx context.Context, table, key string) (string, error)

	// Keys 列出表中全部键, 按字典序排序
	Keys(ctx context.Context, table string) ([]string, error)

	// DropTable 删除整张表
	DropTable(ctx context.Context, table string) error

	// Ping 检查底层连接
	Ping(ctx context.Context) error

	// Close 释放底层连接
	Close() error
}

// Config 工作记忆存储配置
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 表的过期时间, 0 表示不过期; 每次写入都会刷新
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// 键前缀, 用于隔离同一 Redis 实例上的其他数据
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// 是否启用 TLS 连接
	TLSEnabled bool `yaml:"tls_enabled" json:"tls_enabled"`
}

// DefaultConfig 返回默认工作记忆配置
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		TTL:          0,
		KeyPrefix:    "fincrew:wm:",
	}
}

// RedisStore 基于 Redis 的工作记忆存储, 一张表对应一个 Redis hash
type RedisStore struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore 创建工作记忆存储并验证连接
func NewRedisStore(config Config, logger *zap.Logger) (*RedisStore, error) {
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}

	opts := &redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	}
	if config.TLSEnabled {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}

	client := redis.NewClient(opts)

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s := &RedisStore{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "workmem")),
	}

	s.logger.Info("working memory store initialized",
		zap.String("addr", config.Addr),
		zap.Duration("ttl", config.TTL),
	)

	return s, nil
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Set 写入键值对。底层使用 HSET, 表不存在时由 Redis 自动创建;
// 配置了 TTL 时每次写入都刷新整张表的过期时间。
func (s *RedisStore) Set(ctx context.Context, table, key, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errClosed
	}

	hashKey := s.tableKey(table)
	if err := s.redis.HSet(ctx, hashKey, key, value).Err(); err != nil {
		s.logger.Error("working memory set failed",
			zap.String("table", table), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("working memory set failed: %w", err)
	}

	if s.config.TTL > 0 {
		if err := s.redis.Expire(ctx, hashKey, s.config.TTL).Err(); err != nil {
			return fmt.Errorf("working memory expire failed: %w", err)
		}
	}

	return nil
}

// Get 读取键值
func (s *RedisStore) Get(ctx context.Context, table, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", errClosed
	}

	val, err := s.redis.HGet(ctx, s.tableKey(table), key).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	if err != nil {
		s.logger.Error("working memory get failed",
			zap.String("table", table), zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("working memory get failed: %w", err)
	}

	return val, nil
}

// Keys 列出表中全部键, 字典序排序保证输出稳定
func (s *RedisStore) Keys(ctx context.Context, table string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errClosed
	}

	keys, err := s.redis.HKeys(ctx, s.tableKey(table)).Result()
	if err != nil {
		return nil, fmt.Errorf("working memory keys failed: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

// DropTable 删除整张表, 表不存在时不报错
func (s *RedisStore) DropTable(ctx context.Context, table string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errClosed
	}

	if err := s.redis.Del(ctx, s.tableKey(table)).Err(); err != nil {
		s.logger.Error("working memory drop table failed",
			zap.String("table", table), zap.Error(err))
		return fmt.Errorf("working memory drop table failed: %w", err)
	}

	return nil
}

// Ping 检查 Redis 连接
func (s *RedisStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errClosed
	}

	return s.redis.Ping(ctx).Err()
}

// Close 关闭存储
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.logger.Info("closing working memory store")

	return s.redis.Close()
}

// tableKey 计算表对应的 Redis 键
func (s *RedisStore) tableKey(table string) string {
	return s.config.KeyPrefix + table
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// ErrKeyNotFound 键不存在错误
var ErrKeyNotFound = errors.New("working memory key not found")

var errClosed = errors.New("working memory store is closed")

// IsKeyNotFound 判断是否为键不存在错误
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
