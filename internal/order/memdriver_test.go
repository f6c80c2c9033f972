package order

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// memDriver is a database/sql driver over an in-memory store. It only
// understands the statements issued by repository.go, which keeps the
// repository's transaction handling under test without PostgreSQL.

const memDriverName = "order_mem"

var (
	memStoresMu sync.Mutex
	memStores   = map[string]*memStore{}
)

func init() {
	sql.Register(memDriverName, memDriver{})
}

type memOrder struct {
	id         int64
	userID     int64
	address    string
	city       string
	postalCode string
	phone      string
	total      string
	status     string
	createdAt  time.Time
}

type memItem struct {
	id        int64
	orderID   int64
	lineNo    int64
	productID int64
	quantity  int64
	price     string
}

type memProduct struct {
	id    int64
	name  string
	price string
	image *string
}

type memStore struct {
	mu       sync.Mutex
	orders   map[int64]memOrder
	items    []memItem
	products map[int64]memProduct

	nextOrderID int64
	nextItemID  int64
	clock       time.Time
	tick        time.Duration
	itemDelay   time.Duration
}

// newMemDB registers a fresh store for t and opens a *sql.DB on it.
func newMemDB(t *testing.T) (*sql.DB, *memStore) {
	t.Helper()

	store := &memStore{
		orders:   map[int64]memOrder{},
		products: map[int64]memProduct{},
		clock:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		tick:     time.Second,
	}

	dsn := fmt.Sprintf("%s-%p", t.Name(), store)
	memStoresMu.Lock()
	memStores[dsn] = store
	memStoresMu.Unlock()

	db, err := sql.Open(memDriverName, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
		memStoresMu.Lock()
		delete(memStores, dsn)
		memStoresMu.Unlock()
	})
	return db, store
}

func (s *memStore) addProduct(id int64, name, price string, image *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = memProduct{id: id, name: name, price: price, image: image}
}

func (s *memStore) counts() (orders, items int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders), len(s.items)
}

func (s *memStore) now() time.Time {
	s.clock = s.clock.Add(s.tick)
	return s.clock
}

type memDriver struct{}

func (memDriver) Open(name string) (driver.Conn, error) {
	memStoresMu.Lock()
	store, ok := memStores[name]
	memStoresMu.Unlock()
	if !ok {
		return nil, errors.Errorf("unknown store %q", name)
	}
	return &memConn{store: store}, nil
}

type memConn struct {
	store *memStore
	tx    *memTx
}

type memTx struct {
	conn   *memConn
	orders []memOrder
	items  []memItem
}

func (c *memConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *memConn) Close() error { return nil }

func (c *memConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *memConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.tx != nil {
		return nil, errors.New("transaction already open")
	}
	c.tx = &memTx{conn: c}
	return c.tx, nil
}

func (tx *memTx) Commit() error {
	s := tx.conn.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range tx.orders {
		s.orders[o.id] = o
	}
	s.items = append(s.items, tx.items...)
	tx.conn.tx = nil
	return nil
}

func (tx *memTx) Rollback() error {
	tx.conn.tx = nil
	return nil
}

func (c *memConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	s := c.store

	switch query {
	case insertItemSQL:
		if c.tx == nil {
			return nil, errors.New("order_items insert outside transaction")
		}
		if s.itemDelay > 0 {
			select {
			case <-time.After(s.itemDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		orderID := argInt(args, 0)
		productID := argInt(args, 2)

		s.mu.Lock()
		defer s.mu.Unlock()

		if _, ok := s.products[productID]; !ok {
			return nil, &pq.Error{Code: "23503", Message: "order_items_product_id_fkey"}
		}
		found := false
		for _, o := range c.tx.orders {
			if o.id == orderID {
				found = true
			}
		}
		if !found {
			return nil, &pq.Error{Code: "23503", Message: "order_items_order_id_fkey"}
		}

		s.nextItemID++
		c.tx.items = append(c.tx.items, memItem{
			id:        s.nextItemID,
			orderID:   orderID,
			lineNo:    argInt(args, 1),
			productID: productID,
			quantity:  argInt(args, 3),
			price:     argStr(args, 4),
		})
		return driver.RowsAffected(1), nil

	case updateStatusSQL:
		s.mu.Lock()
		defer s.mu.Unlock()

		id := argInt(args, 1)
		o, ok := s.orders[id]
		if !ok {
			return driver.RowsAffected(0), nil
		}
		o.status = argStr(args, 0)
		s.orders[id] = o
		return driver.RowsAffected(1), nil

	case deleteOrderSQL:
		s.mu.Lock()
		defer s.mu.Unlock()

		id := argInt(args, 0)
		if _, ok := s.orders[id]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(s.orders, id)
		kept := s.items[:0]
		for _, it := range s.items {
			if it.orderID != id {
				kept = append(kept, it)
			}
		}
		s.items = kept
		return driver.RowsAffected(1), nil
	}

	return nil, errors.Errorf("unexpected exec: %s", query)
}

func (c *memConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()

	switch query {
	case insertOrderSQL:
		if c.tx == nil {
			return nil, errors.New("orders insert outside transaction")
		}
		s.nextOrderID++
		o := memOrder{
			id:         s.nextOrderID,
			userID:     argInt(args, 0),
			address:    argStr(args, 1),
			city:       argStr(args, 2),
			postalCode: argStr(args, 3),
			phone:      argStr(args, 4),
			total:      argStr(args, 5),
			status:     argStr(args, 6),
			createdAt:  s.now(),
		}
		c.tx.orders = append(c.tx.orders, o)
		return &memRows{cols: []string{"id"}, data: [][]driver.Value{{o.id}}}, nil

	case selectOrderByIDSQL:
		id := argInt(args, 0)
		return s.joined(func(o memOrder) bool { return o.id == id }), nil

	case selectOrdersByUserSQL:
		userID := argInt(args, 0)
		return s.joined(func(o memOrder) bool { return o.userID == userID }), nil

	case listOrdersSQL:
		orders := s.sortedOrders(func(memOrder) bool { return true })
		rows := &memRows{cols: []string{"id", "user_id", "address", "city", "postal_code", "phone", "total_amount", "status", "created_at"}}
		for _, o := range orders {
			rows.data = append(rows.data, []driver.Value{
				o.id, o.userID, o.address, o.city, o.postalCode, o.phone, o.total, o.status, o.createdAt,
			})
		}
		return rows, nil
	}

	return nil, errors.Errorf("unexpected query: %s", query)
}

// sortedOrders applies ORDER BY created_at DESC, id DESC.
func (s *memStore) sortedOrders(keep func(memOrder) bool) []memOrder {
	var out []memOrder
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.After(out[j].createdAt)
		}
		return out[i].id > out[j].id
	})
	return out
}

func (s *memStore) joined(keep func(memOrder) bool) *memRows {
	rows := &memRows{cols: make([]string, 17)}

	for _, o := range s.sortedOrders(keep) {
		var items []memItem
		for _, it := range s.items {
			if it.orderID == o.id {
				items = append(items, it)
			}
		}
		sort.Slice(items, func(i, j int) bool { return items[i].lineNo < items[j].lineNo })

		for _, it := range items {
			p := s.products[it.productID]
			var image driver.Value
			if p.image != nil {
				image = *p.image
			}
			rows.data = append(rows.data, []driver.Value{
				o.id, o.userID, o.address, o.city, o.postalCode, o.phone, o.total, o.status, o.createdAt,
				it.id, it.lineNo, it.productID, it.quantity, it.price,
				p.name, p.price, image,
			})
		}
	}
	return rows
}

type memRows struct {
	cols []string
	data [][]driver.Value
	pos  int
}

func (r *memRows) Columns() []string { return r.cols }
func (r *memRows) Close() error      { return nil }

func (r *memRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}

func argInt(args []driver.NamedValue, i int) int64 {
	v, _ := args[i].Value.(int64)
	return v
}

func argStr(args []driver.NamedValue, i int) string {
	v, _ := args[i].Value.(string)
	return v
}
