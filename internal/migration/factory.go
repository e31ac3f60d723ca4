package migration

import (
	"fmt"
	"net/url"

	appconfig "github.com/waritsan/fincrew/config"
)

// NewMigratorFromConfig creates a migrator from the application config.
func NewMigratorFromConfig(cfg *appconfig.Config) (*DefaultMigrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return NewMigratorFromDatabaseConfig(cfg.Database)
}

// NewMigratorFromDatabaseConfig creates a migrator from a database config.
func NewMigratorFromDatabaseConfig(dbCfg appconfig.DatabaseConfig) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(dbCfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	dbURL, err := BuildDatabaseURL(dbType, dbCfg)
	if err != nil {
		return nil, err
	}

	return NewMigrator(&Config{
		DatabaseType: dbType,
		DatabaseURL:  dbURL,
	})
}

// BuildDatabaseURL renders the connection string the sql driver for the
// dialect expects. Credentials are URL-escaped for postgres.
func BuildDatabaseURL(dbType DatabaseType, dbCfg appconfig.DatabaseConfig) (string, error) {
	switch dbType {
	case DatabaseTypePostgres:
		sslMode := dbCfg.SSLMode
		if sslMode == "" {
			sslMode = "require"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			url.QueryEscape(dbCfg.User), url.QueryEscape(dbCfg.Password),
			dbCfg.Host, dbCfg.Port, dbCfg.Name, sslMode), nil

	case DatabaseTypeMySQL:
		// multiStatements lets one migration file carry several statements.
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.Name), nil

	case DatabaseTypeSQLite:
		// Name holds the database file path.
		if dbCfg.Name == "" {
			return "", fmt.Errorf("sqlite database path is empty")
		}
		return dbCfg.Name, nil

	default:
		return "", fmt.Errorf("unsupported database type: %s", dbType)
	}
}
