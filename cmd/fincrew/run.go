package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/waritsan/fincrew/advisor"
	"github.com/waritsan/fincrew/agent"
	"github.com/waritsan/fincrew/config"
	"github.com/waritsan/fincrew/internal/database"
	"github.com/waritsan/fincrew/internal/metrics"
	"github.com/waritsan/fincrew/internal/telemetry"
	"github.com/waritsan/fincrew/kb"
	kbloader "github.com/waritsan/fincrew/kb/loader"
	"github.com/waritsan/fincrew/llm/embedding"
	"github.com/waritsan/fincrew/llm/factory"
	"github.com/waritsan/fincrew/tools"
	"github.com/waritsan/fincrew/tools/search"
	"github.com/waritsan/fincrew/trace"
	"github.com/waritsan/fincrew/workmem"
)

// =============================================================================
// 🏃 run 命令
// =============================================================================

// runFlags run 命令的参数。
type runFlags struct {
	recreateAgents bool
	companyName    string
	iterations     int
	traceLevel     trace.Level
	cleanUp        bool
	configPath     string
}

// defaultCompanyName 默认分析对象
const defaultCompanyName = "บริษัท กมลโลหะกิจ จำกัด"

func parseRunFlags(args []string) (*runFlags, error) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	recreate := fs.Bool("recreate_agents", true, "Recreate agents and sync the knowledge base; false reuses existing agents and invokes the advisor")
	company := fs.String("company_name", defaultCompanyName, "The company name for analysis")
	iterations := fs.Int("iterations", 1, "The number of rounds of feedback to use when producing the analysis report")
	traceLevel := fs.String("trace_level", "core", "The level of trace, 'core', 'outline', 'all'")
	cleanUp := fs.Bool("clean_up", false, "Cleanup all agents and the knowledge base")
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *iterations < 1 {
		return nil, fmt.Errorf("--iterations must be at least 1, got %d", *iterations)
	}
	level, err := trace.ParseLevel(*traceLevel)
	if err != nil {
		return nil, fmt.Errorf("--trace_level: %w", err)
	}

	return &runFlags{
		recreateAgents: *recreate,
		companyName:    *company,
		iterations:     *iterations,
		traceLevel:     level,
		cleanUp:        *cleanUp,
		configPath:     *configPath,
	}, nil
}

func runRun(args []string) {
	flags, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid arguments: %v\n", err)
		os.Exit(1)
	}

	loader := config.NewLoader()
	if flags.configPath != "" {
		loader = loader.WithConfigPath(flags.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting fincrew run",
		zap.String("version", Version),
		zap.String("company", flags.companyName),
		zap.Bool("recreate_agents", flags.recreateAgents),
		zap.Bool("clean_up", flags.cleanUp),
		zap.String("trace_level", flags.traceLevel.String()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else if otelProviders != nil {
		defer otelProviders.Shutdown(context.Background())
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, prometheus.DefaultRegisterer, logger)
	}

	adv, pool, err := buildAdvisor(cfg, flags.traceLevel, collector, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up advisor: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	fmt.Printf("Acquiring %s knowledge base\n", cfg.KnowledgeBase.Name)
	rec, created, err := adv.EnsureKnowledgeBase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to acquire knowledge base: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("KB name: %s, documents: %d, chunks: %d, created: %t\n\n",
		rec.Name, rec.DocumentCount, rec.ChunkCount, created)

	if flags.recreateAgents {
		stats, err := adv.SyncKnowledgeBase(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Knowledge base sync failed: %v\n", err)
			os.Exit(1)
		}
		logger.Info("knowledge base synced",
			zap.Int("documents", stats.Documents),
			zap.Int("chunks", stats.Chunks))
		fmt.Print("KB sync completed\n\n")
	}

	if flags.cleanUp {
		if err := adv.Cleanup(ctx); err != nil {
			logger.Warn("cleanup finished with errors", zap.Error(err))
		}
		fmt.Println("Cleanup completed.")
		return
	}

	fmt.Printf("\n\nCreating %s as a supervisor agent...\n\n", advisor.SupervisorName)
	if err := adv.SetupAgents(ctx, flags.recreateAgents); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up agents: %v\n", err)
		os.Exit(1)
	}

	invokeAndReport(ctx, adv, flags, os.Stdout)
}

// supervisorInvoker 是编排阶段依赖的最小 Advisor 面。
type supervisorInvoker interface {
	Invoke(ctx context.Context, companyName string, iterations int) (*advisor.RunResult, error)
}

// invokeAndReport 发起编排并把进度与结果写到 w。
// recreate-only 模式只打印 Recreated agents., 不发起编排。
// 编排调用的宽边界: 任何失败都打到 w, 继续输出耗时行, 不改变退出码。
func invokeAndReport(ctx context.Context, adv supervisorInvoker, flags *runFlags, w io.Writer) {
	if flags.recreateAgents {
		fmt.Fprintln(w, "Recreated agents.")
		return
	}

	fmt.Fprint(w, "\n\nInvoking supervisor agent...\n\n")

	start := time.Now()
	fmt.Fprintf(w, "time before call: %s\n\n", start.Format("2006-01-02 15:04:05"))
	result, err := adv.Invoke(ctx, flags.companyName, flags.iterations)
	if err != nil {
		fmt.Fprintln(w, err)
	} else {
		fmt.Fprintln(w, result.Output)
	}
	message.NewPrinter(language.English).Fprintf(w,
		"\nTime taken: %.1f seconds\n", time.Since(start).Seconds())
}

// buildAdvisor 按配置组装编排器与底层连接。
func buildAdvisor(cfg *config.Config, level trace.Level, collector *metrics.Collector, logger *zap.Logger) (*advisor.Advisor, *database.PoolManager, error) {
	db, err := openDatabase(cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	pool, err := database.NewPoolManager(db, database.PoolConfig{
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	registry, err := agent.NewRegistry(pool.DB(), logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	provider, err := factory.NewProviderFromConfig(cfg.LLM.DefaultProvider, factory.ProviderConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Redis 不可用不阻断运行: 工作记忆工具降级为返回错误
	var store workmem.Store
	store, err = workmem.NewRedisStore(workmem.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		TTL:          cfg.Redis.WorkingMemoryTTL,
		TLSEnabled:   cfg.Redis.TLSEnabled,
	}, logger)
	if err != nil {
		logger.Warn("working memory unavailable, tools will report errors", zap.Error(err))
		store = workmem.NewUnavailableStore(err)
	}

	searchProvider, err := search.NewProvider(cfg.WebSearch.Provider, search.Config{
		APIKey:     cfg.WebSearch.APIKey,
		BaseURL:    cfg.WebSearch.BaseURL,
		Timeout:    cfg.WebSearch.Timeout,
		MaxResults: cfg.WebSearch.MaxResults,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	kbManager, err := buildKnowledgeBase(cfg, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	tracer := trace.NewTracer(trace.Config{Level: level, Logger: logger})

	webSearchCfg := tools.DefaultWebSearchToolConfig()
	webSearchCfg.Provider = searchProvider
	webSearchCfg.MaxResults = cfg.WebSearch.MaxResults
	webSearchCfg.Timeout = cfg.WebSearch.Timeout

	adv, err := advisor.New(advisor.Dependencies{
		Provider:      provider,
		Registry:      registry,
		KnowledgeBase: kbManager,
		WorkingMemory: store,
		WebSearch:     webSearchCfg,
		AgentOptions: agent.Options{
			MaxIterations: cfg.Agent.MaxIterations,
			Temperature:   cfg.Agent.Temperature,
			MaxTokens:     cfg.Agent.MaxTokens,
			Timeout:       cfg.Agent.Timeout,
			Tracer:        tracer,
			Metrics:       collector,
		},
		Logger: logger,
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	return adv, pool, nil
}

// buildKnowledgeBase 组装知识库管理器: 加载器、分块器、嵌入与向量索引。
func buildKnowledgeBase(cfg *config.Config, pool *database.PoolManager, logger *zap.Logger) (*kb.Manager, error) {
	embedder, err := embedding.New(cfg.Embedding.Provider,
		embedding.OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    cfg.Embedding.Timeout,
		},
		embedding.LocalConfig{Dimensions: cfg.Embedding.Dimensions})
	if err != nil {
		return nil, err
	}

	tokenizer, err := kb.NewTiktokenAdapter(cfg.Embedding.Model, logger)
	if err != nil {
		logger.Warn("tiktoken unavailable, using token estimator", zap.Error(err))
		tokenizer = kb.NewEstimatorAdapter(cfg.Embedding.Model, logger)
	}
	chunker := kb.NewDocumentChunker(kb.ChunkingConfig{
		ChunkSize:    cfg.KnowledgeBase.ChunkSize,
		ChunkOverlap: cfg.KnowledgeBase.ChunkOverlap,
	}, tokenizer, logger)

	vectorStore, err := kb.NewGormVectorStore(pool.DB(), cfg.KnowledgeBase.Name, logger)
	if err != nil {
		return nil, err
	}

	return kb.NewManager(pool.DB(), vectorStore, embedder, chunker, kbloader.NewLoaderRegistry(),
		kb.ManagerConfig{
			Name:            cfg.KnowledgeBase.Name,
			Description:     cfg.KnowledgeBase.Description,
			SourceDir:       cfg.KnowledgeBase.DocumentDir,
			PrefixGlob:      cfg.KnowledgeBase.PrefixGlob,
			TopK:            cfg.KnowledgeBase.TopK,
			MinScore:        cfg.KnowledgeBase.ScoreThreshold,
			SyncConcurrency: cfg.KnowledgeBase.SyncConcurrency,
		}, logger)
}
