package model

import (
	"encoding/json"
	"time"

	"tools4care/internal/desglose"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CierreVan is the immutable end-of-day snapshot for one van and one business
// day. At most one row exists per (van_id, dia): uni_cierres_van_dia.
// Rows are inserted once and never updated or deleted.
type CierreVan struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VanID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uni_cierres_van_dia,priority:1"`
	// Dia is the business-day key (YYYY-MM-DD) in the configured timezone.
	Dia string `gorm:"type:varchar(10);not null;uniqueIndex:uni_cierres_van_dia,priority:2"`

	EsperadoEfectivo      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	EsperadoTarjeta       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	EsperadoTransferencia decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ContadoEfectivo       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ContadoTarjeta        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ContadoTransferencia  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CxCEmitida            decimal.Decimal `gorm:"column:cxc_emitida;type:decimal(12,2);not null"`
	CxCCobrada            decimal.Decimal `gorm:"column:cxc_cobrada;type:decimal(12,2);not null"`

	Comentario *string
	VentaIDs   datatypes.JSON `gorm:"column:venta_ids;type:jsonb;not null"`
	PagoIDs    datatypes.JSON `gorm:"column:pago_ids;type:jsonb;not null"`
	CreadoPor  *uuid.UUID     `gorm:"type:uuid"`
	CreatedAt  time.Time
}

func (CierreVan) TableName() string { return "cierres_van" }

func (c CierreVan) Esperado() desglose.Desglose {
	return desglose.Nuevo(c.EsperadoEfectivo, c.EsperadoTarjeta, c.EsperadoTransferencia)
}

func (c CierreVan) Contado() desglose.Desglose {
	return desglose.Nuevo(c.ContadoEfectivo, c.ContadoTarjeta, c.ContadoTransferencia)
}

// IDsVentas decodes the consumed sale ids.
func (c CierreVan) IDsVentas() ([]uuid.UUID, error) { return decodeIDs(c.VentaIDs) }

// IDsPagos decodes the consumed payment ids.
func (c CierreVan) IDsPagos() ([]uuid.UUID, error) { return decodeIDs(c.PagoIDs) }

// EncodeIDs renders an id list for the jsonb columns. nil encodes as [].
func EncodeIDs(ids []uuid.UUID) datatypes.JSON {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	b, _ := json.Marshal(ids)
	return datatypes.JSON(b)
}

func decodeIDs(raw datatypes.JSON) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
