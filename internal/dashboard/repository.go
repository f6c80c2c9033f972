package dashboard

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

// Counts holds row totals of the catalog, order and user tables.
type Counts struct {
	Products int64 `json:"products"`
	Orders   int64 `json:"orders"`
	Users    int64 `json:"users"`
}

type Repository interface {
	Counts(ctx context.Context) (Counts, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	g, gctx := errgroup.WithContext(ctx)

	for query, dst := range map[string]*int64{
		`SELECT COUNT(*) FROM products`: &c.Products,
		`SELECT COUNT(*) FROM orders`:   &c.Orders,
		`SELECT COUNT(*) FROM users`:    &c.Users,
	} {
		g.Go(func() error {
			if err := r.db.QueryRowContext(gctx, query).Scan(dst); err != nil {
				return errors.Wrapf(err, "%s", query)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Counts{}, err
	}
	return c, nil
}
