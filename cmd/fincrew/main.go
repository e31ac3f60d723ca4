// =============================================================================
// Fincrew 主入口
// =============================================================================
// 多智能体财务顾问 CLI
//
// 使用方法:
//
//	fincrew run                                  # 创建/重建智能体并同步知识库
//	fincrew run --recreate_agents=false          # 复用智能体并发起一次编排
//	fincrew run --company_name "..."             # 指定分析对象
//	fincrew run --clean_up=true                  # 清理全部智能体与知识库
//	fincrew migrate up                           # 运行数据库迁移
//	fincrew version                              # 显示版本信息
//	fincrew health                               # 健康检查
// =============================================================================
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/glebarez/sqlite"

	"github.com/waritsan/fincrew/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("Fincrew %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Fincrew - Multi-Agent Financial Advisor

Usage:
  fincrew <command> [options]

Commands:
  run       Set up agents and/or invoke one advisor run
  migrate   Database migration commands
  version   Show version information
  health    Check backing service health
  help      Show this help message

Options for 'run':
  --recreate_agents <bool>  Recreate agents and sync the knowledge base (default true).
                            Pass false to reuse existing agents and invoke the advisor.
  --company_name <name>     The company name for analysis
  --iterations <n>          Rounds of feedback for the final report (default 1)
  --trace_level <level>     Trace detail: 'core', 'outline' or 'all' (default core)
  --clean_up <bool>         Delete all agents and the knowledge base, then exit
  --config <path>           Path to configuration file (YAML)

Migration subcommands:
  migrate up        Apply all pending migrations
  migrate down      Rollback the last migration
  migrate status    Show migration status
  migrate version   Show current migration version
  migrate goto <v>  Migrate to a specific version
  migrate force <v> Force set migration version
  migrate reset     Rollback all migrations

Examples:
  fincrew run
  fincrew run --recreate_agents=false --company_name "บริษัท กมลโลหะกิจ จำกัด"
  fincrew run --recreate_agents=false --trace_level outline
  fincrew run --clean_up=true
  fincrew migrate up --config /etc/fincrew/config.yaml
  fincrew health`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

// initLogger 按配置构建 zap。日志走 stderr, stdout 留给任务结果。
func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}

// openDatabase 根据配置打开数据库连接
func openDatabase(dbCfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dbCfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(dbCfg.DSN())
	case "postgres":
		dialector = postgres.Open(dbCfg.DSN())
	case "mysql":
		dialector = mysql.Open(dbCfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", dbCfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	logger.Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}
