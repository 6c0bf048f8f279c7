package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// sqlDialect holds the statements that differ between backends.
type sqlDialect struct {
	name        string
	schema      string
	insert      string
	returningID bool
	list        string
	get         string
	update      string
	delete      string
	exists      string
}

var postgresDialect = sqlDialect{
	name: "postgres",
	schema: `
		CREATE TABLE IF NOT EXISTS products (
			id          BIGSERIAL PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			brand       TEXT NOT NULL DEFAULT '',
			price       DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
	insert: `
		INSERT INTO products (name, description, brand, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
	returningID: true,
	list: `
		SELECT id, name, description, brand, price
		FROM products
		ORDER BY id ASC`,
	get: `
		SELECT id, name, description, brand, price
		FROM products
		WHERE id = $1`,
	update: `
		UPDATE products
		SET name = $1, description = $2, brand = $3, price = $4
		WHERE id = $5`,
	delete: `DELETE FROM products WHERE id = $1`,
	exists: `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`,
}

var sqliteDialect = sqlDialect{
	name: "sqlite",
	schema: `
		CREATE TABLE IF NOT EXISTS products (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			brand       TEXT NOT NULL DEFAULT '',
			price       REAL NOT NULL DEFAULT 0
		)`,
	insert: `
		INSERT INTO products (name, description, brand, price)
		VALUES (?, ?, ?, ?)`,
	list: `
		SELECT id, name, description, brand, price
		FROM products
		ORDER BY id ASC`,
	get: `
		SELECT id, name, description, brand, price
		FROM products
		WHERE id = ?`,
	update: `
		UPDATE products
		SET name = ?, description = ?, brand = ?, price = ?
		WHERE id = ?`,
	delete: `DELETE FROM products WHERE id = ?`,
	exists: `SELECT EXISTS (SELECT 1 FROM products WHERE id = ?)`,
}

// SQLStore keeps products in a relational table through database/sql.
type SQLStore struct {
	db *sql.DB
	d  sqlDialect
}

func NewPostgresStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, d: postgresDialect}
}

func NewSQLiteStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, d: sqliteDialect}
}

// OpenPostgres connects through the pgx driver and creates the table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return bootstrap(ctx, NewPostgresStore(db))
}

// OpenSQLite opens (creating if needed) a database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// one writer at a time; sqlite serializes them anyway
	db.SetMaxOpenConns(1)

	return bootstrap(ctx, NewSQLiteStore(db))
}

// sqliteDSN builds a file: URI; the path is escaped so '?' and '#' stay part of the name.
func sqliteDSN(path string) string {
	q := url.Values{}
	q.Set("_busy_timeout", "5000")
	q.Set("_journal_mode", "WAL")

	u := url.URL{Scheme: "file", Path: path, OmitHost: true, RawQuery: q.Encode()}
	return u.String()
}

func bootstrap(ctx context.Context, s *SQLStore) (*SQLStore, error) {
	if err := s.Ping(ctx); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("ping %s: %w", s.d.name, err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = s.db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if _, err := s.db.ExecContext(ctx, s.d.schema); err != nil {
			return fmt.Errorf("ensure %s schema: %w", s.d.name, err)
		}
		return nil
	})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) List(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, s.d.list)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			var p Product
			if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Brand, &p.Price); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.d.get, id).
			Scan(&p.ID, &p.Name, &p.Description, &p.Brand, &p.Price)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, true, nil
}

func (s *SQLStore) Add(ctx context.Context, p Product) (Product, error) {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if s.d.returningID {
			return s.db.QueryRowContext(ctx, s.d.insert, p.Name, p.Description, p.Brand, p.Price).Scan(&p.ID)
		}

		res, err := s.db.ExecContext(ctx, s.d.insert, p.Name, p.Description, p.Brand, p.Price)
		if err != nil {
			return err
		}
		p.ID, err = res.LastInsertId()
		return err
	})

	if err != nil {
		return Product{}, fmt.Errorf("add product: %w", err)
	}
	return p, nil
}

func (s *SQLStore) Update(ctx context.Context, p Product) error {
	return s.execOne(ctx, "update", p.ID, s.d.update, p.Name, p.Description, p.Brand, p.Price, p.ID)
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete", id, s.d.delete, id)
}

// execOne runs a single-row write and maps "no row touched" to ErrNotFound.
func (s *SQLStore) execOne(ctx context.Context, op string, id int64, query string, args ...any) error {
	var n int64

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})

	if err != nil {
		return fmt.Errorf("%s product %d: %w", op, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.d.exists, id).Scan(&ok)
	})

	if err != nil {
		return false, fmt.Errorf("exists product %d: %w", id, err)
	}
	return ok, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
