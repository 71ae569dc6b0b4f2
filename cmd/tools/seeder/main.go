package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedCustomers(ctx, pool)
	seedShippingMethods(ctx, pool)
	seedCoupons(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool) {
	customers := []struct {
		email string
		group string
	}{
		{"maria@example.com", "vip"},
		{"joao@example.com", ""},
		{"ana@example.com", "wholesale"},
	}
	for _, c := range customers {
		var group *string
		if c.group != "" {
			group = &c.group
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO customers (email, customer_group) VALUES ($1, $2)
			ON CONFLICT (email) DO UPDATE SET customer_group = EXCLUDED.customer_group`,
			c.email, group,
		)
		if err != nil {
			log.Fatalf("Failed to seed customer %s: %v", c.email, err)
		}
	}
	log.Println("Seeded customers")
}

func seedShippingMethods(ctx context.Context, pool *pgxpool.Pool) {
	methods := []struct {
		carrier string
		name    string
		base    string
		perKg   string
		minDays int
		maxDays int
		regions []string
	}{
		{"Correios", "PAC", "12.00", "3.50", 5, 12, nil},
		{"Correios", "SEDEX", "25.00", "6.00", 1, 4, nil},
		{"Loggi", "Expresso SP", "9.90", "2.00", 1, 2, []string{"SP"}},
		{"Jadlog", ".Package", "15.00", "4.20", 3, 9, []string{"SP", "RJ", "MG", "PR", "SC", "RS"}},
	}
	for _, m := range methods {
		regions := m.regions
		if regions == nil {
			regions = []string{}
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO shipping_methods (carrier_name, name, base_cost, cost_per_kg, min_days, max_days, region_codes)
			SELECT $1, $2, $3::numeric, $4::numeric, $5, $6, $7
			WHERE NOT EXISTS (SELECT 1 FROM shipping_methods WHERE carrier_name = $1 AND name = $2)`,
			m.carrier, m.name, m.base, m.perKg, m.minDays, m.maxDays, regions,
		)
		if err != nil {
			log.Fatalf("Failed to seed shipping method %s: %v", m.name, err)
		}
	}
	log.Println("Seeded shipping methods")
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) {
	coupons := []struct {
		code  string
		kind  string
		value string
		extra string
	}{
		{"DESCONTO10", "percentage", "10", `maximum_discount = '50.00', per_customer_limit = 3`},
		{"BEMVINDO15", "fixed", "15.00", `first_purchase_only = TRUE, per_customer_limit = 1`},
		{"FRETEGRATIS", "free_shipping", "0", `minimum_amount = '150.00'`},
		{"VIP20", "percentage", "20", `customer_groups = '{vip}', per_customer_limit = 5`},
	}
	for _, c := range coupons {
		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, kind, value) VALUES ($1, $2, $3::numeric)
			ON CONFLICT (code) DO NOTHING`,
			c.code, c.kind, c.value,
		)
		if err != nil {
			log.Fatalf("Failed to seed coupon %s: %v", c.code, err)
		}
		if c.extra != "" {
			if _, err := pool.Exec(ctx, `UPDATE coupons SET `+c.extra+` WHERE code = $1`, c.code); err != nil {
				log.Fatalf("Failed to configure coupon %s: %v", c.code, err)
			}
		}
	}
	log.Println("Seeded coupons")
}
