package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// The query engine never creates tables itself; these DDL sets exist for the
// local sqlite mode, tests and fresh MySQL databases.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS member (
    member_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name      TEXT NOT NULL,
    city      TEXT,
    street    TEXT,
    zipcode   TEXT
);

CREATE TABLE IF NOT EXISTS delivery (
    delivery_id INTEGER PRIMARY KEY AUTOINCREMENT,
    city        TEXT,
    street      TEXT,
    zipcode     TEXT,
    status      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS item (
    item_id        INTEGER PRIMARY KEY AUTOINCREMENT,
    dtype          TEXT NOT NULL,
    name           TEXT NOT NULL,
    price          INTEGER NOT NULL,
    stock_quantity INTEGER NOT NULL,
    artist         TEXT,
    etc            TEXT,
    author         TEXT,
    isbn           TEXT,
    director       TEXT,
    actor          TEXT
);

CREATE TABLE IF NOT EXISTS orders (
    order_id    INTEGER PRIMARY KEY AUTOINCREMENT,
    member_id   INTEGER NOT NULL REFERENCES member(member_id),
    delivery_id INTEGER NOT NULL UNIQUE REFERENCES delivery(delivery_id),
    order_date  DATETIME NOT NULL,
    status      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_item (
    order_item_id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id      INTEGER NOT NULL REFERENCES orders(order_id) ON DELETE CASCADE,
    item_id       INTEGER NOT NULL,
    order_price   INTEGER NOT NULL,
    count         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_item_order_id ON order_item(order_id, order_item_id);
`

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS member (
    member_id BIGINT AUTO_INCREMENT PRIMARY KEY,
    name      VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
    city      VARCHAR(255),
    street    VARCHAR(255),
    zipcode   VARCHAR(32)
);

CREATE TABLE IF NOT EXISTS delivery (
    delivery_id BIGINT AUTO_INCREMENT PRIMARY KEY,
    city        VARCHAR(255),
    street      VARCHAR(255),
    zipcode     VARCHAR(32),
    status      VARCHAR(16) NOT NULL
);

CREATE TABLE IF NOT EXISTS item (
    item_id        BIGINT AUTO_INCREMENT PRIMARY KEY,
    dtype          VARCHAR(8) NOT NULL,
    name           VARCHAR(255) NOT NULL,
    price          INT NOT NULL,
    stock_quantity INT NOT NULL,
    artist         VARCHAR(255),
    etc            VARCHAR(255),
    author         VARCHAR(255),
    isbn           VARCHAR(32),
    director       VARCHAR(255),
    actor          VARCHAR(255)
);

CREATE TABLE IF NOT EXISTS orders (
    order_id    BIGINT AUTO_INCREMENT PRIMARY KEY,
    member_id   BIGINT NOT NULL,
    delivery_id BIGINT NOT NULL UNIQUE,
    order_date  DATETIME(6) NOT NULL,
    status      VARCHAR(16) NOT NULL,
    FOREIGN KEY (member_id) REFERENCES member(member_id),
    FOREIGN KEY (delivery_id) REFERENCES delivery(delivery_id)
);

CREATE TABLE IF NOT EXISTS order_item (
    order_item_id BIGINT AUTO_INCREMENT PRIMARY KEY,
    order_id      BIGINT NOT NULL,
    item_id       BIGINT NOT NULL,
    order_price   INT NOT NULL,
    count         INT NOT NULL,
    INDEX idx_order_item_order_id (order_id, order_item_id),
    FOREIGN KEY (order_id) REFERENCES orders(order_id) ON DELETE CASCADE
)
`

// Execer is the subset of *sql.DB used to apply DDL.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ApplySchema creates the order tables if they do not exist yet.
func ApplySchema(ctx context.Context, db Execer, dialect Dialect) error {
	var ddl string
	switch dialect {
	case DialectSQLite:
		ddl = sqliteSchema
	case DialectMySQL:
		ddl = mysqlSchema
	default:
		return fmt.Errorf("apply schema: unsupported dialect %q", dialect)
	}
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
