package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// =============================================================================
// 🗂️ 智能体注册表
// =============================================================================

// Record 智能体注册记录, 持久化在 agents 表。
type Record struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Role      string    `gorm:"size:255;not null" json:"role"`
	Goal      string    `gorm:"type:text" json:"goal"`
	Backstory string    `gorm:"type:text" json:"backstory"`
	Model     string    `gorm:"size:255" json:"model"`
	Tools     string    `gorm:"type:text" json:"tools"` // 逗号分隔的工具名
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Record) TableName() string {
	return "agents"
}

// ToolNames 拆出记录上的工具名列表。
func (r Record) ToolNames() []string {
	if strings.TrimSpace(r.Tools) == "" {
		return nil
	}
	parts := strings.Split(r.Tools, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Registry 按名称持久化智能体的注册表。
// 同名智能体最多存在一条记录（唯一索引保证）; 开启强制重建后
// CreateOrRetrieve 先删旧记录再新建。
type Registry struct {
	db     *gorm.DB
	logger *zap.Logger

	mu            sync.RWMutex
	forceRecreate bool
}

// NewRegistry 创建注册表并迁移 agents 表。
func NewRegistry(db *gorm.DB, logger *zap.Logger) (*Registry, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate agents table: %w", err)
	}

	return &Registry{
		db:     db,
		logger: logger.With(zap.String("component", "agent.registry")),
	}, nil
}

// SetForceRecreateDefault 设置强制重建开关。
// 开启后每次 CreateOrRetrieve 都会丢弃同名旧记录。
func (r *Registry) SetForceRecreateDefault(force bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forceRecreate = force
	r.logger.Info("force recreate default set", zap.Bool("force", force))
}

// ForceRecreateDefault 返回当前的强制重建开关。
func (r *Registry) ForceRecreateDefault() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.forceRecreate
}

// CreateOrRetrieve 按名称取回记录, 不存在则创建。
// 返回记录和"本次是否新建"。强制重建开启时总是新建。
func (r *Registry) CreateOrRetrieve(ctx context.Context, name string, attrs Record) (*Record, bool, error) {
	if strings.TrimSpace(name) == "" {
		return nil, false, fmt.Errorf("agent name is required")
	}

	if r.ForceRecreateDefault() {
		if _, err := r.DeleteByName(ctx, name); err != nil {
			return nil, false, err
		}
	}

	attrs.Name = name
	var rec Record
	res := r.db.WithContext(ctx).
		Where(Record{Name: name}).
		Attrs(attrs).
		FirstOrCreate(&rec)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create or retrieve agent %s: %w", name, res.Error)
	}

	created := res.RowsAffected > 0
	if created {
		r.logger.Info("agent registered", zap.String("name", name), zap.String("role", rec.Role))
	} else {
		r.logger.Info("agent retrieved", zap.String("name", name))
	}

	return &rec, created, nil
}

// DeleteByName 按名称删除记录, 返回是否确有删除。
// 记录不存在时不视为错误。
func (r *Registry) DeleteByName(ctx context.Context, name string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("name = ?", name).
		Delete(&Record{})
	if res.Error != nil {
		return false, fmt.Errorf("delete agent %s: %w", name, res.Error)
	}

	if res.RowsAffected == 0 {
		r.logger.Info("agent not found, nothing to delete", zap.String("name", name))
		return false, nil
	}

	r.logger.Info("agent deleted", zap.String("name", name))
	return true, nil
}

// Get 按名称取回记录。
func (r *Registry) Get(ctx context.Context, name string) (*Record, error) {
	var rec Record
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", name, err)
	}
	return &rec, nil
}

// List 返回全部记录, 按名称排序。
func (r *Registry) List(ctx context.Context) ([]Record, error) {
	var recs []Record
	err := r.db.WithContext(ctx).
		Order("name").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return recs, nil
}
