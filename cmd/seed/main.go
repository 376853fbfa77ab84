// Package main seeds the database with the schema and demo catalog data.
// Safe to run repeatedly: DDL uses IF NOT EXISTS and inserts skip existing codes.
package main

import (
	"context"
	"fmt"
	"os"

	"fatture/internal/config"
	"fatture/internal/core/id"
	"fatture/internal/infrastructure/storage/postgres"
	"fatture/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DB.ConnectionString()))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := ensureSchema(ctx, pool); err != nil {
		log.Fatalw("failed to create schema", "error", err)
	}
	log.Info("schema ready")

	created, err := seedClients(ctx, pool)
	if err != nil {
		log.Fatalw("failed to seed clients", "error", err)
	}
	log.Infow("seeding complete", "clients_created", created)
}

func ensureSchema(ctx context.Context, pool *postgres.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cat_clients (
			id                   UUID PRIMARY KEY,
			deletion_mark        BOOLEAN NOT NULL DEFAULT FALSE,
			version              INTEGER NOT NULL DEFAULT 1,
			code                 TEXT NOT NULL UNIQUE,
			name                 TEXT NOT NULL,
			category             TEXT NOT NULL,
			vat_number           TEXT NOT NULL DEFAULT '',
			tax_code             TEXT NOT NULL DEFAULT '',
			address              TEXT NOT NULL DEFAULT '',
			email                TEXT NOT NULL DEFAULT '',
			withholding          BOOLEAN NOT NULL DEFAULT FALSE,
			withholding_rate     NUMERIC(8,4) NOT NULL DEFAULT 0,
			withholding_tax_base NUMERIC(8,4) NOT NULL DEFAULT 0,
			split_payment        BOOLEAN NOT NULL DEFAULT FALSE,
			flat_rate_regime     BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS doc_invoices (
			id                 UUID PRIMARY KEY,
			deletion_mark      BOOLEAN NOT NULL DEFAULT FALSE,
			version            INTEGER NOT NULL DEFAULT 1,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_by         TEXT NOT NULL DEFAULT '',
			updated_by         TEXT NOT NULL DEFAULT '',
			number             TEXT NOT NULL DEFAULT '',
			date               TIMESTAMPTZ NOT NULL,
			due_date           TIMESTAMPTZ,
			client_id          UUID NOT NULL REFERENCES cat_clients (id),
			status             TEXT NOT NULL,
			doc_type           TEXT NOT NULL,
			discount_percent   NUMERIC(8,4) NOT NULL DEFAULT 0,
			discount_amount    NUMERIC(15,2) NOT NULL DEFAULT 0,
			original_id        UUID REFERENCES doc_invoices (id),
			original_number    TEXT NOT NULL DEFAULT '',
			reason             TEXT NOT NULL DEFAULT '',
			taxable_base       NUMERIC(15,2) NOT NULL DEFAULT 0,
			tax_total          NUMERIC(15,2) NOT NULL DEFAULT 0,
			subtotal           NUMERIC(15,2) NOT NULL DEFAULT 0,
			withholding_amount NUMERIC(15,2) NOT NULL DEFAULT 0,
			stamp_duty         NUMERIC(15,2) NOT NULL DEFAULT 0,
			payable            NUMERIC(15,2) NOT NULL DEFAULT 0
		)`,

		// Issued numbers are unique; drafts share the empty string.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_doc_invoices_number
			ON doc_invoices (number) WHERE number <> ''`,

		`CREATE INDEX IF NOT EXISTS idx_doc_invoices_client
			ON doc_invoices (client_id)`,

		`CREATE TABLE IF NOT EXISTS doc_invoice_lines (
			document_id      UUID NOT NULL REFERENCES doc_invoices (id) ON DELETE CASCADE,
			line_id          UUID NOT NULL,
			line_no          INTEGER NOT NULL,
			description      TEXT NOT NULL,
			quantity         NUMERIC(15,4) NOT NULL,
			unit_price       NUMERIC(15,4) NOT NULL,
			vat_rate         TEXT NOT NULL,
			discount_percent NUMERIC(8,4) NOT NULL DEFAULT 0,
			discount_amount  NUMERIC(15,2) NOT NULL DEFAULT 0,
			taxable_base     NUMERIC(15,2) NOT NULL DEFAULT 0,
			tax_amount       NUMERIC(15,2) NOT NULL DEFAULT 0,
			total            NUMERIC(15,2) NOT NULL DEFAULT 0,
			PRIMARY KEY (document_id, line_id)
		)`,

		`CREATE TABLE IF NOT EXISTS sys_sequences (
			key         TEXT PRIMARY KEY,
			current_val BIGINT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

type demoClient struct {
	code               string
	name               string
	category           string
	vatNumber          string
	taxCode            string
	withholding        bool
	withholdingRate    float64
	withholdingTaxBase float64
	splitPayment       bool
	flatRateRegime     bool
}

func seedClients(ctx context.Context, pool *postgres.Pool) (int, error) {
	clients := []demoClient{
		{
			code: "CLI-001", name: "Studio Rossi", category: "professional",
			vatNumber:   "12345678903",
			withholding: true, withholdingRate: 20, withholdingTaxBase: 100,
		},
		{
			code: "CLI-002", name: "Acme S.r.l.", category: "company",
			vatNumber: "01234567897",
		},
		{
			code: "CLI-003", name: "Comune di Milano", category: "public_administration",
			vatNumber: "11111111115", splitPayment: true,
		},
		{
			code: "CLI-004", name: "Mario Bianchi", category: "professional",
			taxCode: "RSSMRA85T10A562S", flatRateRegime: true,
		},
	}

	created := 0
	for _, c := range clients {
		tag, err := pool.Exec(ctx, `
			INSERT INTO cat_clients (
				id, code, name, category, vat_number, tax_code,
				withholding, withholding_rate, withholding_tax_base,
				split_payment, flat_rate_regime, version, deletion_mark
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, FALSE)
			ON CONFLICT (code) DO NOTHING
		`,
			id.New(), c.code, c.name, c.category, c.vatNumber, c.taxCode,
			c.withholding, c.withholdingRate, c.withholdingTaxBase,
			c.splitPayment, c.flatRateRegime,
		)
		if err != nil {
			return created, fmt.Errorf("insert client %s: %w", c.code, err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}
