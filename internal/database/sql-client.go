package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"courseadmin/internal/config"

	"github.com/go-sql-driver/mysql"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// ErrDuplicate is returned when an insert hits a unique key
// (invitation code, tax number, user email).
var ErrDuplicate = errors.New("duplicate key")

// dialect holds the few statements that differ between MySQL and SQLite.
type dialect struct {
	name         string
	forUpdate    string
	insertIgnore string
	inlineIndex  bool
	txOptions    *sql.TxOptions
}

var (
	dialectMySQL = dialect{
		name:         "mysql",
		forUpdate:    " FOR UPDATE",
		insertIgnore: "INSERT IGNORE INTO",
		inlineIndex:  true,
		txOptions:    &sql.TxOptions{Isolation: sql.LevelReadCommitted},
	}
	// SQLite runs on a single connection, so transactions are serialized
	// and row locks are not needed.
	dialectSQLite = dialect{
		name:         "sqlite",
		insertIgnore: "INSERT OR IGNORE INTO",
	}
)

// SqlStore is the invitation, group, company and user store.
// Calls made directly on it run in autocommit mode; InTx runs a unit of work
// in one transaction.
type SqlStore struct {
	queries
	db         *sql.DB
	dialect    dialect
	prefix     string
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

func NewSQLClient(conf *config.Config) (*SqlStore, error) {
	switch conf.Database.Driver {
	case "mysql":
		return OpenMySQL(conf.Database)
	case "sqlite":
		return OpenSQLite(conf.Database.SqlitePath, conf.Database.Prefix)
	}
	return nil, fmt.Errorf("unsupported database driver: %s", conf.Database.Driver)
}

func OpenMySQL(conf config.DatabaseConfig) (*SqlStore, error) {
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		conf.UserName, conf.Password, conf.HostName, conf.Port, conf.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	return newStore(db, dialectMySQL, conf.Prefix)
}

// OpenSQLite opens a file database, or an in-memory one for path ":memory:".
func OpenSQLite(path, prefix string) (*SqlStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	// one connection: serializes writers and keeps an in-memory database alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return newStore(db, dialectSQLite, prefix)
}

func newStore(db *sql.DB, d dialect, prefix string) (*SqlStore, error) {
	s := &SqlStore{
		db:         db,
		dialect:    d,
		prefix:     prefix,
		statements: make(map[string]*sql.Stmt),
	}
	s.queries = queries{store: s}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.prepareAll(); err != nil {
		s.closeStmt()
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

func (s *SqlStore) Driver() string {
	return s.dialect.name
}

// InTx runs fn in a single transaction. Any error returned by fn, or a panic,
// rolls back every statement fn executed.
func (s *SqlStore) InTx(ctx context.Context, fn func(q Queries) error) (err error) {
	tx, err := s.db.BeginTx(ctx, s.dialect.txOptions)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&queries{store: s, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SqlStore) table(name string) string {
	return s.prefix + name
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}
