package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
)

// Поддерживаемые драйверы SQL-хранилища.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ingredients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ingredients_name ON ingredients(name);
`

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS ingredients (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_ingredients_name (name)
)`

// SQLInventory хранит ингредиенты в таблице ingredients (SQLite или MySQL).
// Поле name не уникально: дубликаты отсекает сверка перед записью.
type SQLInventory struct {
	db     *sql.DB
	driver string
}

// OpenSQL открывает хранилище и создаёт схему.
// Для SQLite в dsn передаётся путь к файлу базы, каталог создаётся при необходимости.
func OpenSQL(driver, dsn string) (*SQLInventory, error) {
	var schema string
	switch driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?mode=rwc"
		}
		schema = sqliteSchema
	case DriverMySQL:
		schema = mysqlSchema
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite допускает одного писателя
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(time.Hour)

		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLInventory{db: db, driver: driver}, nil
}

// Close закрывает соединение с базой.
func (s *SQLInventory) Close() error {
	return s.db.Close()
}

// Query ищет записи по полю name или id.
func (s *SQLInventory) Query(ctx context.Context, field, value string) ([]entity.IngredientRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch field {
	case entity.FieldName:
		rows, err = s.db.QueryContext(ctx, `SELECT id, name FROM ingredients WHERE name = ? ORDER BY id`, value)
	case fieldID:
		id, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return nil, nil
		}
		rows, err = s.db.QueryContext(ctx, `SELECT id, name FROM ingredients WHERE id = ?`, id)
	default:
		return nil, fmt.Errorf("query: %w: %s", ErrUnknownField, field)
	}
	if err != nil {
		return nil, fmt.Errorf("query ingredients: %w", err)
	}
	return scanRecords(rows)
}

// Insert добавляет запись. Поддерживается только поле name.
func (s *SQLInventory) Insert(ctx context.Context, fields entity.Fields) (string, error) {
	for k := range fields {
		if k != entity.FieldName {
			return "", fmt.Errorf("insert: %w: %s", ErrUnknownField, k)
		}
	}
	name, ok := fields[entity.FieldName]
	if !ok {
		return "", fmt.Errorf("insert: missing field %s", entity.FieldName)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO ingredients (name) VALUES (?)`, name)
	if err != nil {
		return "", fmt.Errorf("insert ingredient: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("get inserted id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// Delete удаляет запись по идентификатору.
func (s *SQLInventory) Delete(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM ingredients WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("delete ingredient: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает все записи по порядку добавления.
func (s *SQLInventory) List(ctx context.Context) ([]entity.IngredientRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM ingredients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]entity.IngredientRecord, error) {
	defer rows.Close()

	var out []entity.IngredientRecord
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		out = append(out, entity.IngredientRecord{ID: strconv.FormatInt(id, 10), Name: name})
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("iterate ingredients: %w", err)
	}
	return out, nil
}

var _ port.InventoryStore = (*SQLInventory)(nil)
