package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_shop/product-service/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const productColumns = "id, title, description, category, image_url, price, stock, in_stock, created_at"

// SQLiteStore implements ProductStore on top of SQLite.
// Decrement is a single conditional UPDATE, so the row check and write cannot interleave.
type SQLiteStore struct {
	db *sql.DB
}

// sqliteMaxConns bounds the pool for file databases. Readers run in parallel under WAL;
// writers queue on SQLite's database lock for at most the busy timeout.
const sqliteMaxConns = 8

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	inMemory := dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")

	dsn := dbPath
	if !inMemory {
		dsn = "file:" + strings.TrimPrefix(dbPath, "file:") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// every connection would get its own private ":memory:" database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(sqliteMaxConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Category,
		&p.ImageURL,
		&p.Price,
		&p.Stock,
		&p.InStock,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (s *SQLiteStore) Decrement(ctx context.Context, productID int64, qty int32) (int32, error) {
	qty = NormalizeQuantity(qty)

	query := `
		UPDATE products
		SET stock = stock - ?, in_stock = (stock - ? > 0)
		WHERE id = ? AND stock >= ?
		RETURNING stock
	`

	var stock int32
	err := s.db.QueryRowContext(ctx, query, qty, qty, productID, qty).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		current, stockErr := s.currentStock(ctx, productID)
		if stockErr != nil {
			return 0, stockErr
		}
		return current, ErrInsufficientStock
	}
	if err != nil {
		return 0, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return stock, nil
}

func (s *SQLiteStore) Increment(ctx context.Context, productID int64, qty int32) (int32, error) {
	qty = NormalizeQuantity(qty)

	query := `
		UPDATE products
		SET stock = stock + ?, in_stock = (stock + ? > 0)
		WHERE id = ?
		RETURNING stock
	`

	var stock int32
	err := s.db.QueryRowContext(ctx, query, qty, qty, productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment stock: %w", err)
	}
	return stock, nil
}

func (s *SQLiteStore) currentStock(ctx context.Context, productID int64) (int32, error) {
	var stock int32
	err := s.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query stock: %w", err)
	}
	return stock, nil
}

func (s *SQLiteStore) GetStock(ctx context.Context, productIDs []int64) ([]domain.StockInfo, error) {
	result := make([]domain.StockInfo, 0, len(productIDs))
	for _, id := range productIDs {
		var info domain.StockInfo
		err := s.db.QueryRowContext(ctx,
			`SELECT id, stock, in_stock FROM products WHERE id = ?`, id,
		).Scan(&info.ProductID, &info.Stock, &info.InStock)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query stock: %w", err)
		}
		result = append(result, info)
	}
	return result, nil
}

func (s *SQLiteStore) SaveProduct(ctx context.Context, p *domain.Product) error {
	cp := *p
	cp.Normalize()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			category = excluded.category,
			image_url = excluded.image_url,
			price = excluded.price,
			stock = excluded.stock,
			in_stock = excluded.in_stock
	`
	_, err := s.db.ExecContext(ctx, query,
		cp.ID, cp.Title, cp.Description, cp.Category, cp.ImageURL,
		cp.Price, cp.Stock, cp.InStock, cp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
