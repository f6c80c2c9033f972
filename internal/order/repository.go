package order

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"atelier-be/internal/db"
	"atelier-be/internal/logger"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	insertOrderSQL = `
		INSERT INTO orders (user_id, address, city, postal_code, phone, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id`

	insertItemSQL = `
		INSERT INTO order_items (order_id, line_no, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)`

	selectJoinedSQL = `
		SELECT o.id, o.user_id, o.address, o.city, o.postal_code, o.phone,
		       o.total_amount, o.status, o.created_at,
		       oi.id, oi.line_no, oi.product_id, oi.quantity, oi.price,
		       p.name, p.price, p.image
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id`

	selectOrderByIDSQL = selectJoinedSQL + `
		WHERE o.id = $1
		ORDER BY oi.line_no`

	selectOrdersByUserSQL = selectJoinedSQL + `
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC, oi.line_no`

	listOrdersSQL = `
		SELECT id, user_id, address, city, postal_code, phone, total_amount, status, created_at
		FROM orders
		ORDER BY created_at DESC, id DESC`

	updateStatusSQL = `UPDATE orders SET status = $1 WHERE id = $2`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

type Repository interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (int64, error)
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status OrderStatus) error
	DeleteOrder(ctx context.Context, orderID int64) error
}

type repository struct {
	db        *sql.DB
	txTimeout time.Duration
	itemLimit int
}

type Option func(*repository)

// WithTxTimeout bounds the lifetime of the creation transaction. When it
// expires database/sql rolls the transaction back.
func WithTxTimeout(d time.Duration) Option {
	return func(r *repository) { r.txTimeout = d }
}

// WithItemConcurrency caps concurrent item inserts. Zero means one goroutine
// per item.
func WithItemConcurrency(n int) Option {
	return func(r *repository) { r.itemLimit = n }
}

func NewRepository(db *sql.DB, opts ...Option) Repository {
	r := &repository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateOrder inserts the header and every item in one transaction. Either
// all rows are committed or none are.
func (r *repository) CreateOrder(ctx context.Context, in CreateOrderInput) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
		zap.Int64("user_id", in.UserID),
		zap.Int("item_count", len(in.Items)),
	)

	if err := ValidateHeader(in); err != nil {
		log.Warn("invalid order header", zap.Error(err))
		return 0, err
	}

	if r.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.txTimeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrBeginTx, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("failed to rollback transaction", zap.Error(rbErr))
		} else {
			log.Debug("transaction rolled back")
		}
	}()

	var orderID int64
	err = tx.QueryRowContext(ctx, insertOrderSQL,
		in.UserID,
		in.Address,
		in.City,
		in.PostalCode,
		in.Phone,
		*in.TotalAmount,
		StatusNew,
	).Scan(&orderID)
	if err != nil {
		log.Error("failed to insert order",
			zap.String("pg_code", db.PgErrorCode(err)),
			zap.Error(err),
		)
		return 0, errors.Wrap(err, "insert order")
	}

	log = log.With(zap.Int64("order_id", orderID))
	log.Debug("order header inserted")

	if err := r.insertItems(ctx, tx, orderID, in.Items); err != nil {
		log.Error("failed to insert order items", zap.Error(err))
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", zap.Error(err))
		return 0, errors.Wrap(err, "commit")
	}
	committed = true

	log.Info("order created")
	return orderID, nil
}

// insertItems validates and inserts every item concurrently on tx and
// returns the first failure after all goroutines have finished.
func (r *repository) insertItems(ctx context.Context, tx *sql.Tx, orderID int64, items []ItemInput) error {
	g, gctx := errgroup.WithContext(ctx)
	if r.itemLimit > 0 {
		g.SetLimit(r.itemLimit)
	}

	for i, item := range items {
		g.Go(func() error {
			if err := validateItem(i, item); err != nil {
				return err
			}

			_, err := tx.ExecContext(gctx, insertItemSQL,
				orderID,
				i+1,
				item.ProductID,
				item.Quantity,
				*item.Price,
			)
			if err == nil {
				return nil
			}
			if db.IsForeignKeyViolation(err) {
				return &ItemError{
					Index:  i,
					Reason: fmt.Sprintf("unknown product %d", item.ProductID),
					Err:    err,
				}
			}
			return errors.Wrapf(err, "insert item %d", i)
		})
	}

	return g.Wait()
}

func (r *repository) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetOrder"),
		zap.Int64("order_id", orderID),
	)

	agg := NewAggregator(SingleOrder)
	if err := r.queryJoined(ctx, agg, selectOrderByIDSQL, orderID); err != nil {
		log.Error("failed to load order", zap.Error(err))
		return nil, err
	}

	orders := agg.Orders()
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

// ListByUser returns the user's orders, newest first. A user without orders
// gets an empty slice.
func (r *repository) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListByUser"),
		zap.Int64("user_id", userID),
	)

	agg := NewAggregator(MultiOrder)
	if err := r.queryJoined(ctx, agg, selectOrdersByUserSQL, userID); err != nil {
		log.Error("failed to load user orders", zap.Error(err))
		return nil, err
	}

	orders := agg.Orders()
	log.Debug("user orders loaded", zap.Int("count", len(orders)))
	return orders, nil
}

func (r *repository) queryJoined(ctx context.Context, agg *Aggregator, query string, arg int64) error {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	for rows.Next() {
		var row JoinedRow
		if err := rows.Scan(
			&row.OrderID,
			&row.UserID,
			&row.Address,
			&row.City,
			&row.PostalCode,
			&row.Phone,
			&row.TotalAmount,
			&row.Status,
			&row.CreatedAt,
			&row.ItemID,
			&row.LineNo,
			&row.ProductID,
			&row.Quantity,
			&row.ItemPrice,
			&row.ProductName,
			&row.ProductPrice,
			&row.ProductImage,
		); err != nil {
			return errors.Wrap(err, "scan order row")
		}
		if err := agg.Add(row); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate order rows")
	}
	return nil
}

// ListOrders returns every order header without items.
func (r *repository) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, listOrdersSQL)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list orders",
			zap.String("layer", "repository"),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Address,
			&o.City,
			&o.PostalCode,
			&o.Phone,
			&o.TotalAmount,
			&o.Status,
			&o.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	return orders, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	res, err := r.db.ExecContext(ctx, updateStatusSQL, status, orderID)
	if err != nil {
		return errors.Wrap(err, "update order status")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// DeleteOrder removes the header row. Items go with it only through the
// schema's ON DELETE CASCADE.
func (r *repository) DeleteOrder(ctx context.Context, orderID int64) error {
	res, err := r.db.ExecContext(ctx, deleteOrderSQL, orderID)
	if err != nil {
		return errors.Wrap(err, "delete order")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
