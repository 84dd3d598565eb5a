// Package repo is the GORM persistence layer: connection setup, the schema,
// and free query functions that take the *gorm.DB (or transaction) to run on.
package repo

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and tunes the database connection.
type Options struct {
	Driver  string // sqlite (default) or postgres
	DSN     string // file path for sqlite, URL/keyword DSN for postgres
	Tracing bool   // install the OpenTelemetry GORM plugin
	Debug   bool   // log every statement
}

// sqlitePragmas are applied by the driver to every pooled connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

type pool struct {
	open, idle        int
	idleTime, maxLife time.Duration
}

var (
	sqlitePool   = pool{open: 10, idle: 10, idleTime: 5 * time.Minute, maxLife: 30 * time.Minute}
	postgresPool = pool{open: 25, idle: 10, idleTime: 5 * time.Minute, maxLife: 30 * time.Minute}
)

// Open connects using opts.Driver and installs the tracing plugin when asked.
func Open(opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		db, err = OpenSQLite(opts.DSN)
	case DriverPostgres, "postgresql":
		db, err = OpenPostgres(opts.DSN)
	default:
		return nil, fmt.Errorf("repo: unsupported driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		db.Logger = db.Logger.LogMode(logger.Info)
	}
	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("repo: tracing plugin: %w", err)
		}
	}
	return db, nil
}

// OpenSQLite opens or creates the database file at path. The parent
// directory must already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("repo: sqlite dir: %w", err)
		}
	}
	return connect(sqlite.Open(sqliteDSN(path)), sqlitePool, false)
}

// sqliteDSN appends the connection pragmas to path, keeping any query the
// caller already gave.
func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}

// OpenPostgres connects to Postgres with the pgx-backed GORM driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("repo: empty postgres DSN")
	}
	return connect(postgres.Open(dsn), postgresPool, true)
}

func connect(d gorm.Dialector, p pool, translate bool) (*gorm.DB, error) {
	db, err := gorm.Open(d, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: translate,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(p.open)
	sqlDB.SetMaxIdleConns(p.idle)
	sqlDB.SetConnMaxIdleTime(p.idleTime)
	sqlDB.SetConnMaxLifetime(p.maxLife)
	return db, nil
}

// AutoMigrate creates or updates every table, parents before children.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Chat{},
		&domain.Message{},
		&domain.Feedback{},
		&domain.ReplayRecord{},
		&domain.ChatAttachment{},
		&domain.SharedChat{},
		&domain.Connector{},
		&domain.ScheduledTask{},
		&domain.TaskHistory{},
		&domain.UserAPIKey{},
		&domain.BillingEventRecord{},
	)
}

// isUniqueViolation recognises duplicate-key errors across drivers. Postgres
// errors are translated by GORM; the pure-Go SQLite driver reports them as
// text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}
