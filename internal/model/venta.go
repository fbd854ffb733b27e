package model

import (
	"encoding/json"
	"time"

	"tools4care/internal/desglose"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Venta is a sale captured on a van. ClienteID nil means a quick sale.
// TotalPagado may be below Total (credit) or above it (change due); neither is
// rejected at capture time.
type Venta struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VanID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_ventas_van_fecha,priority:1"`
	ClienteID *uuid.UUID `gorm:"type:uuid;index"`
	// Fecha is the business timestamp, not the row creation time.
	Fecha       time.Time       `gorm:"not null;index:idx_ventas_van_fecha,priority:2"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalPagado decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	// Tender columns. Older rows only carry Pagos or MetodoPago.
	PagoEfectivo      *decimal.Decimal `gorm:"type:decimal(12,2)"`
	PagoTarjeta       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	PagoTransferencia *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Pagos             datatypes.JSON   `gorm:"type:jsonb"`
	MetodoPago        *string          `gorm:"type:varchar(40)"`

	IdempotencyKey    *string    `gorm:"type:varchar(120)"`
	ReferenciaExterna *string    `gorm:"type:varchar(120)"`
	CierreID          *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Venta) TableName() string { return "ventas" }

// Registro exposes the sale's tender shapes to the extractor.
func (v Venta) Registro() desglose.Registro {
	r := desglose.Registro{
		Efectivo:      v.PagoEfectivo,
		Tarjeta:       v.PagoTarjeta,
		Transferencia: v.PagoTransferencia,
	}
	if len(v.Pagos) > 0 {
		r.Anidado = json.RawMessage(v.Pagos)
	}
	if v.MetodoPago != nil {
		pagado := v.TotalPagado
		r.Monto = &pagado
		r.Metodo = *v.MetodoPago
	}
	return r
}

// Credito is the unpaid portion of the sale, never negative.
func (v Venta) Credito() decimal.Decimal {
	return decimal.Max(v.Total.Sub(v.TotalPagado), decimal.Zero)
}

// Cambio is the change due when the client paid more than the total.
func (v Venta) Cambio() decimal.Decimal {
	return decimal.Max(v.TotalPagado.Sub(v.Total), decimal.Zero)
}
