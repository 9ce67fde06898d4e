package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"storefront-checkout/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type postgresRepo struct {
	pool   DBPool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool DBPool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `id, user_id, order_date::text, total::text, status`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	const insertOrder = `
INSERT INTO orders (user_id, order_date, total, status)
VALUES ($1, $2::date, $3::numeric, $4)
RETURNING ` + orderColumns

	created, err := scanOrder(tx.QueryRow(ctx, insertOrder, o.OwnerID, o.Date.String(), o.Total.StringFixed(2), string(o.Status)))
	if err != nil {
		r.logger.Printf("order repo: insert header user=%d err=%v", o.OwnerID, err)
		return nil, err
	}

	const insertLine = `
INSERT INTO order_lines (order_id, product_id, color, quantity, name)
VALUES ($1, $2, $3, $4, $5)
`
	created.Lines = make([]domain.OrderLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		if _, err := tx.Exec(ctx, insertLine, created.ID, l.ProductID, l.Color, l.Quantity, l.Name); err != nil {
			r.logger.Printf("order repo: insert line order=%d product=%d err=%v", created.ID, l.ProductID, err)
			return nil, fmt.Errorf("insert line: %w", err)
		}
		l.OrderID = created.ID
		created.Lines = append(created.Lines, l)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("order repo: get id=%d err=%v", id, err)
		}
		return nil, err
	}
	lines, err := r.Lines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY order_date DESC, id DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	byOrder, err := r.linesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = byOrder[orders[i].ID]
		if orders[i].Lines == nil {
			orders[i].Lines = []domain.OrderLine{}
		}
	}
	return orders, nil
}

func (r *postgresRepo) Lines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	const q = `
SELECT order_id, product_id, color, quantity, name
FROM order_lines
WHERE order_id = $1
ORDER BY id
`
	rows, err := r.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.OrderLine{}
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.Color, &l.Quantity, &l.Name); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *postgresRepo) linesForUser(ctx context.Context, userID int64) (map[int64][]domain.OrderLine, error) {
	const q = `
SELECT l.order_id, l.product_id, l.color, l.quantity, l.name
FROM order_lines l
JOIN orders o ON o.id = l.order_id
WHERE o.user_id = $1
ORDER BY l.order_id, l.id
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list user lines: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.OrderLine)
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.Color, &l.Quantity, &l.Name); err != nil {
			return nil, err
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, rows.Err()
}

func (r *postgresRepo) SetStatus(ctx context.Context, id int64, status domain.Status) (*domain.Order, error) {
	const q = `
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id, string(status)))
	if err != nil {
		return nil, err
	}
	lines, err := r.Lines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

func (r *postgresRepo) Summary(ctx context.Context, userID int64) (domain.OrderSummary, error) {
	const q = `
SELECT status, count(*)::int, coalesce(sum(total), 0)::text
FROM orders
WHERE user_id = $1
GROUP BY status
`
	summary := domain.OrderSummary{TotalSpent: decimal.Zero, ByStatus: map[domain.Status]int{}}
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return summary, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
			spent  string
		)
		if err := rows.Scan(&status, &count, &spent); err != nil {
			return summary, err
		}
		amount, err := decimal.NewFromString(spent)
		if err != nil {
			return summary, fmt.Errorf("summary total %q: %w", spent, err)
		}
		summary.ByStatus[domain.Status(status)] = count
		summary.TotalOrders += count
		if domain.Status(status) != domain.StatusCancelled {
			summary.TotalSpent = summary.TotalSpent.Add(amount)
		}
	}
	return summary, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		date   string
		total  string
		status string
	)
	if err := row.Scan(&o.ID, &o.OwnerID, &date, &total, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	d, err := domain.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("order %d date: %w", o.ID, err)
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("order %d total: %w", o.ID, err)
	}
	o.Date = d
	o.Total = amount
	o.Status = domain.Status(status)
	return &o, nil
}
