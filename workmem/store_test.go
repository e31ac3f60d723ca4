package workmem

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 RedisStore 测试
// =============================================================================

func setupTestStore(t *testing.T, mutate func(*Config)) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	config := DefaultConfig()
	config.Addr = mr.Addr()
	if mutate != nil {
		mutate(&config)
	}

	store, err := NewRedisStore(config, zap.NewNop())
	require.NoError(t, err)

	return mr, store
}

func TestNewRedisStore(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	assert.NotNil(t, store)
	assert.NotNil(t, store.redis)
	assert.Equal(t, "fincrew:wm:", store.config.KeyPrefix)
}

func TestNewRedisStore_ConnectFailed(t *testing.T) {
	config := DefaultConfig()
	config.Addr = "localhost:9999" // 不存在的地址

	store, err := NewRedisStore(config, zap.NewNop())
	assert.Nil(t, store)
	assert.Error(t, err)
}

func TestRedisStore_SetAndGet(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	// 写入键值
	err := store.Set(ctx, "financial-advisor-test", "net_income", "12500000")
	require.NoError(t, err)

	// 读取键值
	value, err := store.Get(ctx, "financial-advisor-test", "net_income")
	require.NoError(t, err)
	assert.Equal(t, "12500000", value)
}

func TestRedisStore_GetMissing(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	_, err := store.Get(ctx, "financial-advisor-test", "no-such-key")
	assert.Error(t, err)
	assert.True(t, IsKeyNotFound(err))
}

func TestRedisStore_TablesAreIsolated(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	// 两张表使用相同的键名
	require.NoError(t, store.Set(ctx, "run-a", "summary", "value-a"))
	require.NoError(t, store.Set(ctx, "run-b", "summary", "value-b"))

	valueA, err := store.Get(ctx, "run-a", "summary")
	require.NoError(t, err)
	valueB, err := store.Get(ctx, "run-b", "summary")
	require.NoError(t, err)

	assert.Equal(t, "value-a", valueA)
	assert.Equal(t, "value-b", valueB)
}

func TestRedisStore_Keys(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "run-keys", "revenue", "1"))
	require.NoError(t, store.Set(ctx, "run-keys", "assets", "2"))
	require.NoError(t, store.Set(ctx, "run-keys", "liabilities", "3"))

	keys, err := store.Keys(ctx, "run-keys")
	require.NoError(t, err)

	// 字典序排序
	assert.Equal(t, []string{"assets", "liabilities", "revenue"}, keys)
}

func TestRedisStore_KeysEmptyTable(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	keys, err := store.Keys(context.Background(), "never-written")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisStore_DropTable(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "run-drop", "k1", "v1"))
	require.NoError(t, store.Set(ctx, "run-drop", "k2", "v2"))

	// 删除整张表
	err := store.DropTable(ctx, "run-drop")
	require.NoError(t, err)

	_, err = store.Get(ctx, "run-drop", "k1")
	assert.True(t, IsKeyNotFound(err))

	keys, err := store.Keys(ctx, "run-drop")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisStore_DropMissingTable(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	// 删除不存在的表不报错
	err := store.DropTable(context.Background(), "never-existed")
	assert.NoError(t, err)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, store := setupTestStore(t, func(c *Config) {
		c.TTL = 100 * time.Millisecond
	})
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "run-ttl", "k", "v"))

	// 立即读取应该成功
	value, err := store.Get(ctx, "run-ttl", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	// 快进时间
	mr.FastForward(200 * time.Millisecond)

	// 整张表应已过期
	_, err = store.Get(ctx, "run-ttl", "k")
	assert.True(t, IsKeyNotFound(err))
}

func TestRedisStore_TTLRefreshedOnWrite(t *testing.T) {
	mr, store := setupTestStore(t, func(c *Config) {
		c.TTL = 1 * time.Minute
	})
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "run-refresh", "k1", "v1"))
	mr.FastForward(45 * time.Second)

	// 第二次写入刷新整张表的 TTL
	require.NoError(t, store.Set(ctx, "run-refresh", "k2", "v2"))
	mr.FastForward(30 * time.Second)

	// 距首次写入已 75s, 距刷新仅 30s, k1 仍应存在
	value, err := store.Get(ctx, "run-refresh", "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)
}

func TestRedisStore_UnicodeValues(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	// 泰文公司名原样存取
	company := "บริษัท กมลโลหะกิจ จำกัด"
	require.NoError(t, store.Set(ctx, "run-unicode", "company_name", company))

	value, err := store.Get(ctx, "run-unicode", "company_name")
	require.NoError(t, err)
	assert.Equal(t, company, value)
}

func TestRedisStore_Closed(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()

	require.NoError(t, store.Close())

	ctx := context.Background()

	assert.Error(t, store.Set(ctx, "t", "k", "v"))
	_, err := store.Get(ctx, "t", "k")
	assert.Error(t, err)
	assert.False(t, IsKeyNotFound(err))
	_, err = store.Keys(ctx, "t")
	assert.Error(t, err)
	assert.Error(t, store.DropTable(ctx, "t"))
	assert.Error(t, store.Ping(ctx))

	// 重复关闭安全
	assert.NoError(t, store.Close())
}

func TestRedisStore_Ping(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
}

func TestRedisStore_ConcurrentWrites(t *testing.T) {
	mr, store := setupTestStore(t, nil)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	// 并发写入同一张表
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := fmt.Sprintf("metric-%d", id)
			err := store.Set(ctx, "run-concurrent", key, "value")
			assert.NoError(t, err)
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	keys, err := store.Keys(ctx, "run-concurrent")
	require.NoError(t, err)
	assert.Len(t, keys, 10)
}
