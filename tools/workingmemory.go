package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waritsan/fincrew/llm"
	"github.com/waritsan/fincrew/workmem"
)

// setValueArgs set_value_for_key 参数
type setValueArgs struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	TableName string `json:"table_name"`
}

// getValueArgs get_key_value 参数
type getValueArgs struct {
	Key       string `json:"key"`
	TableName string `json:"table_name"`
}

// NewSetValueForKeyTool creates the set_value_for_key ToolFunc over a
// working-memory store. The table is created on first write.
func NewSetValueForKeyTool(store workmem.Store, logger *zap.Logger) (ToolFunc, ToolMetadata) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fn := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var params setValueArgs
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid set_value_for_key arguments: %w", err)
		}
		if strings.TrimSpace(params.Key) == "" {
			return nil, fmt.Errorf("key is required")
		}
		if strings.TrimSpace(params.TableName) == "" {
			return nil, fmt.Errorf("table_name is required")
		}

		if err := store.Set(ctx, params.TableName, params.Key, params.Value); err != nil {
			logger.Error("set_value_for_key failed",
				zap.String("table", params.TableName),
				zap.String("key", params.Key),
				zap.Error(err))
			return nil, fmt.Errorf("set value failed: %w", err)
		}

		logger.Info("working memory value set",
			zap.String("table", params.TableName),
			zap.String("key", params.Key))

		return json.Marshal(map[string]string{
			"status": "ok",
			"key":    params.Key,
			"table":  params.TableName,
		})
	}

	metadata := ToolMetadata{
		Schema: llm.ToolSchema{
			Name:        "set_value_for_key",
			Description: "Store a value under a key in the shared working-memory table so other agents can read it. Creates the table if it does not exist.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"key": {
						"type": "string",
						"description": "The key to store the value under"
					},
					"value": {
						"type": "string",
						"description": "The value to store"
					},
					"table_name": {
						"type": "string",
						"description": "Name of the working-memory table"
					}
				},
				"required": ["key", "value", "table_name"]
			}`),
		},
		Timeout:     10 * time.Second,
		Description: "Working-memory write tool backed by the shared run-scoped key-value table.",
	}

	return fn, metadata
}

// NewGetKeyValueTool creates the get_key_value ToolFunc over a
// working-memory store.
func NewGetKeyValueTool(store workmem.Store, logger *zap.Logger) (ToolFunc, ToolMetadata) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fn := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var params getValueArgs
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid get_key_value arguments: %w", err)
		}
		if strings.TrimSpace(params.Key) == "" {
			return nil, fmt.Errorf("key is required")
		}
		if strings.TrimSpace(params.TableName) == "" {
			return nil, fmt.Errorf("table_name is required")
		}

		value, err := store.Get(ctx, params.TableName, params.Key)
		if err != nil {
			if workmem.IsKeyNotFound(err) {
				// 未命中不算失败, 把可用的键列表反馈给模型
				keys, keysErr := store.Keys(ctx, params.TableName)
				if keysErr != nil {
					keys = nil
				}
				return json.Marshal(map[string]any{
					"status":         "not_found",
					"key":            params.Key,
					"table":          params.TableName,
					"available_keys": keys,
				})
			}
			logger.Error("get_key_value failed",
				zap.String("table", params.TableName),
				zap.String("key", params.Key),
				zap.Error(err))
			return nil, fmt.Errorf("get value failed: %w", err)
		}

		return json.Marshal(map[string]string{
			"status": "ok",
			"key":    params.Key,
			"table":  params.TableName,
			"value":  value,
		})
	}

	metadata := ToolMetadata{
		Schema: llm.ToolSchema{
			Name:        "get_key_value",
			Description: "Read the value stored under a key in the shared working-memory table. Reports available keys when the key is missing.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"key": {
						"type": "string",
						"description": "The key to read"
					},
					"table_name": {
						"type": "string",
						"description": "Name of the working-memory table"
					}
				},
				"required": ["key", "table_name"]
			}`),
		},
		Timeout:     10 * time.Second,
		Description: "Working-memory read tool backed by the shared run-scoped key-value table.",
	}

	return fn, metadata
}

// RegisterWorkingMemoryTools registers set_value_for_key and get_key_value.
func RegisterWorkingMemoryTools(registry Registry, store workmem.Store, logger *zap.Logger) error {
	setFn, setMeta := NewSetValueForKeyTool(store, logger)
	if err := registry.Register("set_value_for_key", setFn, setMeta); err != nil {
		return err
	}
	getFn, getMeta := NewGetKeyValueTool(store, logger)
	return registry.Register("get_key_value", getFn, getMeta)
}
