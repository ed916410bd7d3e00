package repositories

import (
	"context"
	"database/sql"
)

// Order states that never count towards campaign revenue
const (
	orderStatusCancelled = 4
	orderStatusVoided    = -1
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// PartnerRevenue aggregates the net revenue, shipping excluded and converted
// with the order currency factor, per referral partner. Orders without a
// partner and cancelled or voided orders are ignored, as are partners whose
// sum is NULL (a currency factor of zero).
func (r *OrderRepository) PartnerRevenue(ctx context.Context) (map[string]float64, error) {
	query := `
		SELECT partner_id,
			ROUND(SUM((invoice_amount_net - invoice_shipping_net) / currency_factor), 2) AS revenue
		FROM orders
		WHERE status != ? AND status != ? AND partner_id <> ''
		GROUP BY partner_id
	`

	rows, err := r.db.QueryContext(ctx, query, orderStatusCancelled, orderStatusVoided)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revenues := make(map[string]float64)
	for rows.Next() {
		var partnerID string
		var revenue sql.NullFloat64
		if err := rows.Scan(&partnerID, &revenue); err != nil {
			return nil, err
		}
		if !revenue.Valid {
			continue
		}
		revenues[partnerID] = revenue.Float64
	}

	return revenues, rows.Err()
}
