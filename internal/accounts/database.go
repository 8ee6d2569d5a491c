package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sqliteDialector "github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("accounts.database.unsupported_dialect")

	errEmptyDatabaseURL    = errors.New("accounts.database.empty_database_url")
	errSQLiteEmptyPath     = errors.New("accounts.database.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("accounts.database.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("accounts.database.unsupported_no_scheme")
)

// Database owns the GORM handle backing users and stores.
type Database struct {
	db           *gorm.DB
	driverLabel  string
	pool         *pgxpool.Pool
	passwordCost int
	users        *UserRepository
}

// Option customizes Open.
type Option func(*Database)

// WithPasswordCost overrides the bcrypt cost used for new password hashes.
func WithPasswordCost(cost int) Option {
	return func(database *Database) {
		database.passwordCost = cost
	}
}

// Open connects to postgres:// or sqlite:// URLs and migrates the schema.
func Open(ctx context.Context, databaseURL string, options ...Option) (*Database, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("accounts.database.open: %w", errEmptyDatabaseURL)
	}
	database := &Database{passwordCost: bcrypt.DefaultCost}
	for _, option := range options {
		option(database)
	}

	dialector, driverLabel, pool, err := resolveDialector(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	database.driverLabel = driverLabel
	database.pool = pool

	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		// Stores reference users.user_id, a unique but non-primary column.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if openErr != nil {
		database.closePool()
		return nil, fmt.Errorf("accounts.database.open.%s: %w", driverLabel, openErr)
	}
	database.db = gormDB
	database.users = NewUserRepository(gormDB, database.passwordCost)

	if driverLabel == "sqlite" {
		sqlDB, sqlErr := gormDB.DB()
		if sqlErr != nil {
			return nil, fmt.Errorf("accounts.database.open.%s: %w", driverLabel, sqlErr)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&User{}, &Store{}); migrateErr != nil {
		_ = database.Close()
		return nil, fmt.Errorf("accounts.database.migrate.%s: %w", driverLabel, migrateErr)
	}
	return database, nil
}

// Driver exposes the selected database driver label.
func (database *Database) Driver() string {
	return database.driverLabel
}

// Users returns the shared user repository.
func (database *Database) Users() *UserRepository {
	return database.users
}

// Stores returns the store repository.
func (database *Database) Stores() *StoreRepository {
	return NewStoreRepository(database.db)
}

// Ping verifies the database is reachable.
func (database *Database) Ping(ctx context.Context) error {
	sqlDB, err := database.db.DB()
	if err != nil {
		return fmt.Errorf("accounts.database.ping.%s: %w", database.driverLabel, err)
	}
	if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		return fmt.Errorf("accounts.database.ping.%s: %w", database.driverLabel, pingErr)
	}
	return nil
}

// Close releases the connection pool.
func (database *Database) Close() error {
	var closeErr error
	if database.db != nil {
		if sqlDB, err := database.db.DB(); err == nil {
			closeErr = sqlDB.Close()
		}
	}
	database.closePool()
	return closeErr
}

func (database *Database) closePool() {
	if database.pool != nil {
		database.pool.Close()
		database.pool = nil
	}
}

func resolveDialector(ctx context.Context, databaseURL string) (gorm.Dialector, string, *pgxpool.Pool, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", nil, fmt.Errorf("accounts.database.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, "", nil, fmt.Errorf("accounts.database.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		pool, poolErr := BuildPool(ctx, databaseURL)
		if poolErr != nil {
			return nil, "", nil, fmt.Errorf("accounts.database.postgres.pool: %w", poolErr)
		}
		return postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), "postgres", pool, nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", nil, fmt.Errorf("accounts.database.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil, nil
	default:
		return nil, "", nil, fmt.Errorf("accounts.database.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

// BuildPool creates a pgx pool with conservative defaults.
func BuildPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	config.MinConns = 1
	config.MaxConns = 8
	config.MaxConnLifetime = 30 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second
	return pgxpool.NewWithConfig(ctx, config)
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
