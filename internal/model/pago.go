package model

import (
	"encoding/json"
	"time"

	"tools4care/internal/desglose"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Pago is an accounts-receivable ledger entry. When VentaID is set the money
// was collected as part of that sale.
type Pago struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VanID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_pagos_van_fecha,priority:1"`
	ClienteID *uuid.UUID `gorm:"type:uuid;index"`
	Fecha     time.Time  `gorm:"not null;index:idx_pagos_van_fecha,priority:2"`
	// Metodo is free text ("Zelle", "tarjeta de crédito", ...).
	Metodo   string           `gorm:"type:varchar(60)"`
	Monto    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Desglose datatypes.JSON   `gorm:"type:jsonb"`

	VentaID           *uuid.UUID `gorm:"type:uuid;index"`
	IdempotencyKey    *string    `gorm:"type:varchar(120)"`
	ReferenciaExterna *string    `gorm:"type:varchar(120)"`
	CierreID          *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt         time.Time
}

func (Pago) TableName() string { return "pagos" }

// Registro exposes the payment's tender shapes to the extractor.
func (p Pago) Registro() desglose.Registro {
	r := desglose.Registro{Monto: p.Monto, Metodo: p.Metodo}
	if len(p.Desglose) > 0 {
		r.Anidado = json.RawMessage(p.Desglose)
	}
	return r
}
