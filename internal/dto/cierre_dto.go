package dto

import (
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ContadoRequest is the physically counted money per tender channel.
type ContadoRequest struct {
	Efectivo      decimal.Decimal `json:"efectivo"      validate:"min=0"`
	Tarjeta       decimal.Decimal `json:"tarjeta"       validate:"min=0"`
	Transferencia decimal.Decimal `json:"transferencia" validate:"min=0"`
}

// Contado is a pointer so a body without it fails required instead of
// counting zero.
type VariacionRequest struct {
	Contado *ContadoRequest `json:"contado" validate:"required"`
}

type ConfirmarCierreRequest struct {
	Contado    *ContadoRequest `json:"contado"    validate:"required"`
	Comentario *string         `json:"comentario" validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MontosPorMedio struct {
	Efectivo      decimal.Decimal `json:"efectivo"`
	Tarjeta       decimal.Decimal `json:"tarjeta"`
	Transferencia decimal.Decimal `json:"transferencia"`
	Total         decimal.Decimal `json:"total"`
}

type VariacionResponse struct {
	PorMedio      MontosPorMedio  `json:"por_medio"`
	Total         decimal.Decimal `json:"total"`
	Porcentaje    decimal.Decimal `json:"porcentaje"`
	Clasificacion string          `json:"clasificacion"` // normal | advertencia | critico
	Sobrante      decimal.Decimal `json:"sobrante"`
	Faltante      decimal.Decimal `json:"faltante"`
}

type CxCResponse struct {
	Emitida decimal.Decimal `json:"emitida"`
	Cobrada decimal.Decimal `json:"cobrada"`
}

type MovimientoItem struct {
	ID        string          `json:"id"`
	Tipo      string          `json:"tipo"` // venta | pago
	Fecha     string          `json:"fecha"`
	ClienteID *string         `json:"cliente_id"`
	Cliente   *string         `json:"cliente"`
	VentaID   *string         `json:"venta_id,omitempty"`
	Monto     decimal.Decimal `json:"monto"`
	Desglose  MontosPorMedio  `json:"desglose"`
	Credito   decimal.Decimal `json:"credito"`
	Cambio    decimal.Decimal `json:"cambio"`
	Regla     string          `json:"regla"`
}

type SeccionResponse struct {
	Movimientos []MovimientoItem `json:"movimientos"`
	Grilla      MontosPorMedio   `json:"grilla"`
	CxC         CxCResponse      `json:"cxc"`
}

// EstimadoResponse is the server-side view's naive total, shown for
// comparison with the computed grid.
type EstimadoResponse struct {
	Efectivo      decimal.Decimal `json:"efectivo"`
	Tarjeta       decimal.Decimal `json:"tarjeta"`
	Transferencia decimal.Decimal `json:"transferencia"`
	SinAsignar    decimal.Decimal `json:"sin_asignar"`
}

type VistaCierreResponse struct {
	VanID               string             `json:"van_id"`
	Dia                 string             `json:"dia"`
	Estado              string             `json:"estado"` // abierto | cerrado | cerrado_con_pendientes
	CierreID            *string            `json:"cierre_id"`
	Esperado            MontosPorMedio     `json:"esperado"`
	Adicional           *MontosPorMedio    `json:"adicional"`
	Contado             *MontosPorMedio    `json:"contado"`
	Variacion           *VariacionResponse `json:"variacion"`
	CxC                 CxCResponse        `json:"cxc"`
	EnCierre            *SeccionResponse   `json:"en_cierre"`
	Pendientes          SeccionResponse    `json:"pendientes"`
	Estimado            *EstimadoResponse  `json:"estimado"`
	SinClasificar       decimal.Decimal    `json:"sin_clasificar"`
	Colapsados          int                `json:"colapsados"`
	EtiquetadoPendiente bool               `json:"etiquetado_pendiente"`
}

type CierreResponse struct {
	ID         string            `json:"id"`
	VanID      string            `json:"van_id"`
	Dia        string            `json:"dia"`
	Esperado   MontosPorMedio    `json:"esperado"`
	Contado    MontosPorMedio    `json:"contado"`
	Variacion  VariacionResponse `json:"variacion"`
	CxC        CxCResponse       `json:"cxc"`
	Comentario *string           `json:"comentario"`
	VentaIDs   []string          `json:"venta_ids"`
	PagoIDs    []string          `json:"pago_ids"`
	CreadoPor  *string           `json:"creado_por"`
	CreatedAt  string            `json:"created_at"`
	// EtiquetadoCompleto is false when the commit was left partial.
	EtiquetadoCompleto bool `json:"etiquetado_completo"`
}

type ReetiquetarResponse struct {
	CierreID          string `json:"cierre_id"`
	VentasEtiquetadas int64  `json:"ventas_etiquetadas"`
	PagosEtiquetados  int64  `json:"pagos_etiquetados"`
}
