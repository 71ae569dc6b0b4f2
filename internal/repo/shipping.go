package repo

import (
	"context"

	"github.com/vitrine-shop/backend-loja/internal/shipping"
)

// ShippingRepo reads method configuration and writes quote audit rows.
type ShippingRepo struct {
	DB DB
}

// ListActiveMethods returns every enabled method with its rate parameters.
func (r ShippingRepo) ListActiveMethods(ctx context.Context) ([]shipping.Method, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, carrier_name, name, base_cost, cost_per_kg,
		       min_days, max_days, region_codes, is_active
		FROM shipping_methods
		WHERE is_active
		ORDER BY base_cost, min_days`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var methods []shipping.Method
	for rows.Next() {
		var m shipping.Method
		if err := rows.Scan(
			&m.ID, &m.CarrierName, &m.Name, &m.BaseCost, &m.CostPerKg,
			&m.MinDays, &m.MaxDays, &m.RegionCodes, &m.Active,
		); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// InsertCalculation persists one quote audit row.
func (r ShippingRepo) InsertCalculation(ctx context.Context, calc shipping.Calculation) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO shipping_calculations (
			destination_cep, region, approximate, weight_kg,
			option_count, cheapest_cost, quoted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		calc.DestinationCEP, calc.Region, calc.Approximate, calc.WeightKg,
		calc.OptionCount, calc.CheapestCost, calc.QuotedAt,
	)
	return err
}
