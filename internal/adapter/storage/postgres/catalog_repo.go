package postgres

import (
	"context"
	"fmt"

	"campus-card-ledger/internal/core/domain"
	"campus-card-ledger/pkg/money"

	"github.com/google/uuid"
)

// CatalogRepo implements ports.CatalogRepository as a read-only view over
// the menu tables owned by the catalog admin tooling.
type CatalogRepo struct {
	pool Pool
}

// NewCatalogRepo creates a new CatalogRepo.
func NewCatalogRepo(pool Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

// GetItems resolves item ids to their current price and availability.
// Missing ids are simply absent from the result; the processor decides
// how to surface that.
func (r *CatalogRepo) GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.MenuItem, error) {
	query := `SELECT id, name, unit_price, available FROM menu_items WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID]domain.MenuItem, len(ids))
	for rows.Next() {
		var m domain.MenuItem
		var price int64
		if err := rows.Scan(&m.ID, &m.Name, &price, &m.Available); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		m.UnitPrice = money.Amount(price)
		items[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu items: %w", err)
	}
	return items, nil
}
