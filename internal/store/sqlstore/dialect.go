package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type dialect struct {
	name       string
	driverName string
	// returning means inserts report their id through RETURNING instead of
	// LastInsertId.
	returning bool
	numbered  bool
	lockRows  bool
	quote     string
	setup     []string
	schema    []string
}

func lookupDialect(name string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DriverSQLite, "sqlite3":
		return sqliteDialect, nil
	case DriverPostgres, "pgx", "postgresql":
		return postgresDialect, nil
	case DriverMySQL:
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

// bind rewrites a query written with `?` placeholders and the {change}
// column token into the dialect's syntax.
func (d dialect) bind(query string) string {
	query = strings.ReplaceAll(query, "{change}", d.quote+"change"+d.quote)
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d dialect) forUpdate() string {
	if d.lockRows {
		return " FOR UPDATE"
	}
	return ""
}

func (d dialect) prepareDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	switch d.name {
	case DriverSQLite:
		if dsn == "" {
			dsn = "file:appstock.db"
		}
		return dsn, nil
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return cfg.FormatDSN(), nil
	default:
		if dsn == "" {
			return "", errors.New("database url is required")
		}
		return dsn, nil
	}
}

func (d dialect) configurePool(db *sql.DB) {
	if d.name == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
}

var sqliteDialect = dialect{
	name:       DriverSQLite,
	driverName: "sqlite",
	quote:      `"`,
	setup: []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	},
	schema: []string{
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			barcode VARCHAR(64) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			price DECIMAL(10,2) NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date DATETIME NOT NULL,
			total DECIMAL(10,2) NOT NULL,
			paid DECIMAL(10,2) NOT NULL,
			"change" DECIMAL(10,2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			cancelled_at DATETIME NULL,
			cancellation_reason TEXT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sale_details (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sale_id INTEGER NOT NULL,
			product_id INTEGER NULL,
			description VARCHAR(255) NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price DECIMAL(10,2) NOT NULL,
			FOREIGN KEY (sale_id) REFERENCES sales(id),
			FOREIGN KEY (product_id) REFERENCES products(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sale_details_sale ON sale_details(sale_id)`,
	},
}

var postgresDialect = dialect{
	name:       DriverPostgres,
	driverName: "pgx",
	returning:  true,
	numbered:   true,
	lockRows:   true,
	quote:      `"`,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			barcode VARCHAR(64) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			price NUMERIC(10,2) NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			date TIMESTAMPTZ NOT NULL,
			total NUMERIC(10,2) NOT NULL,
			paid NUMERIC(10,2) NOT NULL,
			"change" NUMERIC(10,2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			cancelled_at TIMESTAMPTZ NULL,
			cancellation_reason TEXT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sale_details (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			sale_id BIGINT NOT NULL REFERENCES sales(id),
			product_id BIGINT NULL REFERENCES products(id),
			description VARCHAR(255) NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price NUMERIC(10,2) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sale_details_sale ON sale_details(sale_id)`,
	},
}

var mysqlDialect = dialect{
	name:       DriverMySQL,
	driverName: "mysql",
	lockRows:   true,
	quote:      "`",
	schema: []string{
		"CREATE TABLE IF NOT EXISTS products (" +
			"id BIGINT AUTO_INCREMENT PRIMARY KEY," +
			"barcode VARCHAR(64) NOT NULL UNIQUE," +
			"name VARCHAR(255) NOT NULL," +
			"price DECIMAL(10,2) NOT NULL," +
			"stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0)" +
			") ENGINE=InnoDB",
		"CREATE TABLE IF NOT EXISTS sales (" +
			"id BIGINT AUTO_INCREMENT PRIMARY KEY," +
			"date DATETIME(6) NOT NULL," +
			"total DECIMAL(10,2) NOT NULL," +
			"paid DECIMAL(10,2) NOT NULL," +
			"`change` DECIMAL(10,2) NOT NULL," +
			"status VARCHAR(20) NOT NULL DEFAULT 'active'," +
			"cancelled_at DATETIME(6) NULL," +
			"cancellation_reason TEXT NULL" +
			") ENGINE=InnoDB",
		"CREATE TABLE IF NOT EXISTS sale_details (" +
			"id BIGINT AUTO_INCREMENT PRIMARY KEY," +
			"sale_id BIGINT NOT NULL," +
			"product_id BIGINT NULL," +
			"description VARCHAR(255) NOT NULL DEFAULT ''," +
			"quantity INT NOT NULL CHECK (quantity > 0)," +
			"unit_price DECIMAL(10,2) NOT NULL," +
			"FOREIGN KEY (sale_id) REFERENCES sales(id)," +
			"FOREIGN KEY (product_id) REFERENCES products(id)" +
			") ENGINE=InnoDB",
	},
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
