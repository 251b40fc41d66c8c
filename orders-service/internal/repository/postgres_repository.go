package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/fjod/go_shop/orders-service/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var orderColumns = []string{
	"id", "user_id", "user_name", "email", "status", "method", "coupon",
	"subtotal", "discount", "shipping", "tax", "total",
	"address_name", "address_phone", "address_line1", "address_line2",
	"address_city", "address_state", "address_pincode",
	"placed_at", "updated_at",
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	slog.Info("connected to postgres", "host", cred.Host, "db", cred.DBName)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order, event *domain.OrderEvent) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := psql.Insert("orders").
			Columns(orderColumns...).
			Values(
				order.ID, order.UserID, order.UserName, order.Email, string(order.Status),
				order.Method, order.Totals.Coupon,
				order.Totals.Subtotal, order.Totals.Discount, order.Totals.Shipping,
				order.Totals.Tax, order.Totals.Total,
				order.Address.Name, order.Address.Phone, order.Address.Line1, order.Address.Line2,
				order.Address.City, order.Address.State, order.Address.Pincode,
				order.PlacedAt, order.UpdatedAt,
			).ToSql()
		if err != nil {
			return fmt.Errorf("build insert order: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrDuplicateOrder
			}
			return fmt.Errorf("insert order: %w", err)
		}

		if len(order.Items) > 0 {
			items := psql.Insert("order_items").
				Columns("order_id", "position", "product_id", "title", "price", "quantity", "image_url")
			for i, it := range order.Items {
				items = items.Values(order.ID, i, it.ProductID, it.Title, it.Price, it.Quantity, it.ImageURL)
			}
			query, args, err := items.ToSql()
			if err != nil {
				return fmt.Errorf("build insert items: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}
		}

		return insertEvent(ctx, tx, event)
	})
}

func insertEvent(ctx context.Context, tx *sql.Tx, event *domain.OrderEvent) error {
	if event == nil {
		return nil
	}
	query, args, err := psql.Insert("outbox_events").
		Columns("id", "aggregate_id", "event_type", "payload", "created_at").
		Values(event.ID, event.AggregateID, event.EventType, string(event.Payload), event.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert event: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	var st string
	err := row.Scan(
		&o.ID, &o.UserID, &o.UserName, &o.Email, &st, &o.Method, &o.Totals.Coupon,
		&o.Totals.Subtotal, &o.Totals.Discount, &o.Totals.Shipping, &o.Totals.Tax, &o.Totals.Total,
		&o.Address.Name, &o.Address.Phone, &o.Address.Line1, &o.Address.Line2,
		&o.Address.City, &o.Address.State, &o.Address.Pincode,
		&o.PlacedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(st)
	return &o, nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query, args, err := psql.Select(orderColumns...).From("orders").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select order: %w", err)
	}

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) ListOrdersByCustomer(ctx context.Context, userID, email string) ([]*domain.Order, error) {
	match := sq.Or{}
	if email != "" {
		match = append(match, sq.Eq{"email": email})
	}
	if userID != "" {
		match = append(match, sq.Eq{"user_id": userID})
	}
	if len(match) == 0 {
		return []*domain.Order{}, nil
	}

	return r.listOrders(ctx, psql.Select(orderColumns...).From("orders").Where(match))
}

func (r *Repository) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return r.listOrders(ctx, psql.Select(orderColumns...).From("orders"))
}

func (r *Repository) listOrders(ctx context.Context, q sq.SelectBuilder) ([]*domain.Order, error) {
	query, args, err := q.OrderBy("placed_at DESC", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Repository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
		ids = append(ids, o.ID.String())
	}

	query, args, err := psql.Select("order_id", "product_id", "title", "price", "quantity", "image_url").
		From("order_items").
		Where(sq.Eq{"order_id": ids}).
		OrderBy("order_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build select items: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		var it domain.OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Title, &it.Price, &it.Quantity, &it.ImageURL); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

func (r *Repository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from []domain.OrderStatus,
	to domain.OrderStatus,
	event *domain.OrderEvent,
) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		q := psql.Update("orders").
			Set("status", string(to)).
			Set("updated_at", time.Now().UTC()).
			Where(sq.Eq{"id": id})
		if len(from) > 0 {
			allowed := make([]string, len(from))
			for i, s := range from {
				allowed[i] = string(s)
			}
			q = q.Where(sq.Eq{"status": allowed})
		}

		query, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build update status: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
				return fmt.Errorf("failed to look up order: %w", err)
			}
			if !exists {
				return ErrOrderNotFound
			}
			return ErrStatusConflict
		}

		return insertEvent(ctx, tx, event)
	})
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error) {
	query, args, err := psql.Select("id", "aggregate_id", "event_type", "payload", "created_at").
		From("outbox_events").
		Where(sq.Eq{"processed_at": nil}).
		OrderBy("created_at").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select events: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OrderEvent
	for rows.Next() {
		var ev domain.OrderEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		ev.Payload = payload
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql.Update("outbox_events").
		Set("processed_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark event: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
