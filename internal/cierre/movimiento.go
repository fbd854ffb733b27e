// Package cierre holds the van closeout engine: the system grid, receivables,
// variance, the reconciliation view and the commit sequence. It does no I/O.
package cierre

import (
	"sort"
	"strings"
	"time"

	"tools4care/internal/desglose"
	"tools4care/internal/jornada"
	"tools4care/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Origen tells whether a movement came from a sale or a payment.
type Origen string

const (
	OrigenVenta Origen = "venta"
	OrigenPago  Origen = "pago"
)

// MetodoMixto is the composite-key method of a breakdown spread over channels.
const MetodoMixto = "mixto"

const sinCliente = "none"

// Movimiento is a sale or payment reduced to what the grid needs.
type Movimiento struct {
	ID        uuid.UUID
	Origen    Origen
	VentaID   *uuid.UUID
	ClienteID *uuid.UUID
	Fecha     time.Time
	Dia       jornada.Dia
	Metodo    string
	Clave     string
	Desglose  desglose.Desglose
	Regla     desglose.Regla

	SinClasificar decimal.Decimal
}

// DeVenta normalizes a sale.
func DeVenta(v model.Venta, res *jornada.Resolver) Movimiento {
	det := desglose.ExtraerDetalle(v.Registro())
	id := v.ID
	m := Movimiento{
		ID:            v.ID,
		Origen:        OrigenVenta,
		VentaID:       &id,
		ClienteID:     v.ClienteID,
		Fecha:         v.Fecha,
		Dia:           res.Dia(v.Fecha),
		Desglose:      det.Desglose,
		Regla:         det.Regla,
		SinClasificar: det.SinClasificar,
	}
	m.Metodo = metodoCanonico(det.Desglose, deref(v.MetodoPago))
	m.Clave = ClaveIdempotencia(v.IdempotencyKey, v.ReferenciaExterna, m.Metodo, m.Dia, v.ClienteID)
	return m
}

// DePago normalizes a payment.
func DePago(p model.Pago, res *jornada.Resolver) Movimiento {
	det := desglose.ExtraerDetalle(p.Registro())
	m := Movimiento{
		ID:            p.ID,
		Origen:        OrigenPago,
		VentaID:       p.VentaID,
		ClienteID:     p.ClienteID,
		Fecha:         p.Fecha,
		Dia:           res.Dia(p.Fecha),
		Desglose:      det.Desglose,
		Regla:         det.Regla,
		SinClasificar: det.SinClasificar,
	}
	m.Metodo = metodoCanonico(det.Desglose, p.Metodo)
	m.Clave = ClaveIdempotencia(p.IdempotencyKey, p.ReferenciaExterna, m.Metodo, m.Dia, p.ClienteID)
	return m
}

// ClaveIdempotencia picks the identity of a piece of money: the explicit key,
// else the external reference, else (method, day, client). Two distinct
// payments with the same composite key are treated as one.
func ClaveIdempotencia(explicita, externa *string, metodo string, dia jornada.Dia, clienteID *uuid.UUID) string {
	if k := strings.TrimSpace(deref(explicita)); k != "" {
		return "idem:" + k
	}
	if k := strings.TrimSpace(deref(externa)); k != "" {
		return "ref:" + k
	}
	cliente := sinCliente
	if clienteID != nil {
		cliente = clienteID.String()
	}
	return "comp:" + metodo + "|" + dia.String() + "|" + cliente
}

func metodoCanonico(d desglose.Desglose, etiqueta string) string {
	if m, ok := d.MedioUnico(); ok {
		return string(m)
	}
	if !d.IsZero() {
		return MetodoMixto
	}
	if m, ok := desglose.Clasificar(etiqueta); ok {
		return string(m)
	}
	return desglose.Normalizar(etiqueta)
}

// Unificar normalizes both record kinds into one deterministic sequence,
// ordered by (fecha, id). Sales with a zero breakdown are skipped. A payment
// linked to a sale in the input inherits the sale's key, so the mirror of a
// sale never counts twice; when the sale has no tender the payment keeps its
// own key.
func Unificar(ventas []model.Venta, pagos []model.Pago, res *jornada.Resolver) []Movimiento {
	movs := make([]Movimiento, 0, len(ventas)+len(pagos))
	clavesVenta := make(map[uuid.UUID]string, len(ventas))

	for _, v := range ordenarVentas(ventas) {
		m := DeVenta(v, res)
		if m.Desglose.IsZero() {
			continue
		}
		clavesVenta[v.ID] = m.Clave
		movs = append(movs, m)
	}
	for _, p := range ordenarPagos(pagos) {
		m := DePago(p, res)
		if m.VentaID != nil {
			if clave, ok := clavesVenta[*m.VentaID]; ok {
				m.Clave = clave
			}
		}
		movs = append(movs, m)
	}

	sort.SliceStable(movs, func(i, j int) bool {
		if !movs[i].Fecha.Equal(movs[j].Fecha) {
			return movs[i].Fecha.Before(movs[j].Fecha)
		}
		if movs[i].Origen != movs[j].Origen {
			return movs[i].Origen == OrigenVenta
		}
		return movs[i].ID.String() < movs[j].ID.String()
	})
	return movs
}

func ordenarVentas(in []model.Venta) []model.Venta {
	out := append([]model.Venta(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Fecha.Equal(out[j].Fecha) {
			return out[i].Fecha.Before(out[j].Fecha)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func ordenarPagos(in []model.Pago) []model.Pago {
	out := append([]model.Pago(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Fecha.Equal(out[j].Fecha) {
			return out[i].Fecha.Before(out[j].Fecha)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
