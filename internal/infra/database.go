package infra

import (
	"fmt"

	"tools4care/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the GORM connection backed by pgx, migrates the closeout
// table and applies the idempotent SQL patches. ventas, pagos and clientes
// belong to the capture app and are never AutoMigrated here; the patches only
// add what the closeout needs on them.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(&model.CierreVan{}); err != nil {
		return nil, fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}
	return db, nil
}

// applySchemaPatches runs DDL GORM cannot express. Every statement is guarded
// so re-running on a patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"ventas.cierre_id", `
DO $$ BEGIN
  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'ventas') THEN
    ALTER TABLE ventas ADD COLUMN IF NOT EXISTS cierre_id UUID;
    CREATE INDEX IF NOT EXISTS idx_ventas_cierre_id ON ventas (cierre_id);
    CREATE INDEX IF NOT EXISTS idx_ventas_abiertas ON ventas (van_id, fecha) WHERE cierre_id IS NULL;
  END IF;
END $$`},
		{"pagos.cierre_id", `
DO $$ BEGIN
  IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'pagos') THEN
    ALTER TABLE pagos ADD COLUMN IF NOT EXISTS cierre_id UUID;
    CREATE INDEX IF NOT EXISTS idx_pagos_cierre_id ON pagos (cierre_id);
    CREATE INDEX IF NOT EXISTS idx_pagos_abiertos ON pagos (van_id, fecha) WHERE cierre_id IS NULL;
  END IF;
END $$`},
		// Older deployments created the table before the unique index existed.
		{"uni_cierres_van_dia", `
CREATE UNIQUE INDEX IF NOT EXISTS uni_cierres_van_dia ON cierres_van (van_id, dia)`},
		// The expected-totals estimate is computed in Go now.
		{"drop v_totales_esperados_van", `DROP VIEW IF EXISTS v_totales_esperados_van`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

// RunMigrations creates every table the service reads plus the patches. Used
// by integration tests against an empty database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Cliente{},
		&model.Venta{},
		&model.Pago{},
		&model.CierreVan{},
	); err != nil {
		return err
	}
	return applySchemaPatches(db)
}
