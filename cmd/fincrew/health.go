package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/waritsan/fincrew/config"
	"github.com/waritsan/fincrew/llm/factory"
	"github.com/waritsan/fincrew/workmem"
)

// =============================================================================
// 🏥 health 命令
// =============================================================================

// runHealthCheck 逐项探测后端依赖: 数据库、Redis、模型提供商。
// 任一失败时退出码为 1, 但所有项都会被检查并报告。
func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-check timeout")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := zap.NewNop()
	failed := false

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// 数据库
	if db, err := openDatabase(cfg.Database, logger); err != nil {
		fmt.Printf("database: FAIL (%v)\n", err)
		failed = true
	} else {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			fmt.Printf("database: FAIL (%v)\n", err)
			failed = true
		} else {
			fmt.Println("database: ok")
			sqlDB.Close()
		}
	}

	// Redis 工作记忆
	store, err := workmem.NewRedisStore(workmem.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		TLSEnabled:   cfg.Redis.TLSEnabled,
	}, logger)
	if err != nil {
		fmt.Printf("working memory: FAIL (%v)\n", err)
		failed = true
	} else {
		if err := store.Ping(ctx); err != nil {
			fmt.Printf("working memory: FAIL (%v)\n", err)
			failed = true
		} else {
			fmt.Println("working memory: ok")
		}
		store.Close()
	}

	// 模型提供商
	provider, err := factory.NewProviderFromConfig(cfg.LLM.DefaultProvider, factory.ProviderConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		fmt.Printf("llm provider: FAIL (%v)\n", err)
		failed = true
	} else if status, err := provider.HealthCheck(ctx); err != nil {
		fmt.Printf("llm provider: FAIL (%v)\n", err)
		failed = true
	} else if !status.Healthy {
		fmt.Printf("llm provider: FAIL (unhealthy, latency %s)\n", status.Latency)
		failed = true
	} else {
		fmt.Printf("llm provider: ok (%s, latency %s)\n", provider.Name(), status.Latency)
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("OK")
}
