package repository

import (
	"context"
	"net/url"
	"time"

	"tools4care/internal/infra"
	"tools4care/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ventaRow and pagoRow mirror the hosted backend's JSON rows.
type ventaRow struct {
	ID                uuid.UUID        `json:"id"`
	VanID             uuid.UUID        `json:"van_id"`
	ClienteID         *uuid.UUID       `json:"cliente_id"`
	Fecha             time.Time        `json:"fecha"`
	Total             decimal.Decimal  `json:"total"`
	TotalPagado       decimal.Decimal  `json:"total_pagado"`
	PagoEfectivo      *decimal.Decimal `json:"pago_efectivo"`
	PagoTarjeta       *decimal.Decimal `json:"pago_tarjeta"`
	PagoTransferencia *decimal.Decimal `json:"pago_transferencia"`
	Pagos             datatypes.JSON   `json:"pagos"`
	MetodoPago        *string          `json:"metodo_pago"`
	IdempotencyKey    *string          `json:"idempotency_key"`
	ReferenciaExterna *string          `json:"referencia_externa"`
	CierreID          *uuid.UUID       `json:"cierre_id"`
	CreatedAt         time.Time        `json:"created_at"`
}

func (r ventaRow) toModel() model.Venta {
	return model.Venta{
		ID:                r.ID,
		VanID:             r.VanID,
		ClienteID:         r.ClienteID,
		Fecha:             r.Fecha,
		Total:             r.Total,
		TotalPagado:       r.TotalPagado,
		PagoEfectivo:      r.PagoEfectivo,
		PagoTarjeta:       r.PagoTarjeta,
		PagoTransferencia: r.PagoTransferencia,
		Pagos:             nullJSON(r.Pagos),
		MetodoPago:        r.MetodoPago,
		IdempotencyKey:    r.IdempotencyKey,
		ReferenciaExterna: r.ReferenciaExterna,
		CierreID:          r.CierreID,
		CreatedAt:         r.CreatedAt,
	}
}

type pagoRow struct {
	ID                uuid.UUID        `json:"id"`
	VanID             uuid.UUID        `json:"van_id"`
	ClienteID         *uuid.UUID       `json:"cliente_id"`
	Fecha             time.Time        `json:"fecha"`
	Metodo            string           `json:"metodo"`
	Monto             *decimal.Decimal `json:"monto"`
	Desglose          datatypes.JSON   `json:"desglose"`
	VentaID           *uuid.UUID       `json:"venta_id"`
	IdempotencyKey    *string          `json:"idempotency_key"`
	ReferenciaExterna *string          `json:"referencia_externa"`
	CierreID          *uuid.UUID       `json:"cierre_id"`
	CreatedAt         time.Time        `json:"created_at"`
}

func (r pagoRow) toModel() model.Pago {
	return model.Pago{
		ID:                r.ID,
		VanID:             r.VanID,
		ClienteID:         r.ClienteID,
		Fecha:             r.Fecha,
		Metodo:            r.Metodo,
		Monto:             r.Monto,
		Desglose:          nullJSON(r.Desglose),
		VentaID:           r.VentaID,
		IdempotencyKey:    r.IdempotencyKey,
		ReferenciaExterna: r.ReferenciaExterna,
		CierreID:          r.CierreID,
		CreatedAt:         r.CreatedAt,
	}
}

// nullJSON drops a literal JSON null so the extractor sees an absent value.
func nullJSON(j datatypes.JSON) datatypes.JSON {
	if string(j) == "null" {
		return nil
	}
	return j
}

type hostedMovimientoRepo struct{ c *infra.HostedClient }

// NewHostedMovimientoRepository reads movements from the hosted backend
// instead of the local database.
func NewHostedMovimientoRepository(c *infra.HostedClient) MovimientoRepository {
	return &hostedMovimientoRepo{c: c}
}

func filtroAbierto(vanID uuid.UUID, inicio, fin time.Time) url.Values {
	q := url.Values{}
	q.Set("van_id", "eq."+vanID.String())
	q.Add("fecha", "gte."+inicio.UTC().Format(time.RFC3339Nano))
	q.Add("fecha", "lt."+fin.UTC().Format(time.RFC3339Nano))
	q.Set("cierre_id", "is.null")
	q.Set("order", "fecha.asc,id.asc")
	return q
}

func filtroCerrado(cierreID uuid.UUID) url.Values {
	q := url.Values{}
	q.Set("cierre_id", "eq."+cierreID.String())
	q.Set("order", "fecha.asc,id.asc")
	return q
}

func (r *hostedMovimientoRepo) ListVentasAbiertas(ctx context.Context, vanID uuid.UUID, inicio, fin time.Time) ([]model.Venta, error) {
	return r.ventas(ctx, filtroAbierto(vanID, inicio, fin))
}

func (r *hostedMovimientoRepo) ListPagosAbiertos(ctx context.Context, vanID uuid.UUID, inicio, fin time.Time) ([]model.Pago, error) {
	return r.pagos(ctx, filtroAbierto(vanID, inicio, fin))
}

func (r *hostedMovimientoRepo) ListVentasCerradas(ctx context.Context, cierreID uuid.UUID) ([]model.Venta, error) {
	return r.ventas(ctx, filtroCerrado(cierreID))
}

func (r *hostedMovimientoRepo) ListPagosCerrados(ctx context.Context, cierreID uuid.UUID) ([]model.Pago, error) {
	return r.pagos(ctx, filtroCerrado(cierreID))
}

func (r *hostedMovimientoRepo) ventas(ctx context.Context, q url.Values) ([]model.Venta, error) {
	rows, err := infra.Select[ventaRow](ctx, r.c, "ventas", q)
	if err != nil {
		return nil, err
	}
	out := make([]model.Venta, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

func (r *hostedMovimientoRepo) pagos(ctx context.Context, q url.Values) ([]model.Pago, error) {
	rows, err := infra.Select[pagoRow](ctx, r.c, "pagos", q)
	if err != nil {
		return nil, err
	}
	out := make([]model.Pago, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}
