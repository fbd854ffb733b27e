// Package desglose turns raw sale and payment records of varying shape into a
// canonical cash / card / transfer breakdown.
package desglose

import (
	"github.com/shopspring/decimal"
)

// Medio is one of the three tender channels a van tracks.
type Medio string

const (
	MedioEfectivo      Medio = "efectivo"
	MedioTarjeta       Medio = "tarjeta"
	MedioTransferencia Medio = "transferencia"
)

// Medios lists the channels in reporting order.
var Medios = []Medio{MedioEfectivo, MedioTarjeta, MedioTransferencia}

// Tolerancia is the maximum rounding gap between a breakdown total and the
// amount it was derived from.
var Tolerancia = decimal.RequireFromString("0.005")

// Desglose is a tender breakdown. Values produced by the extractor are >= 0
// and rounded to 2 decimal places.
type Desglose struct {
	Efectivo      decimal.Decimal `json:"efectivo"`
	Tarjeta       decimal.Decimal `json:"tarjeta"`
	Transferencia decimal.Decimal `json:"transferencia"`
}

// De builds a breakdown with the whole amount in one channel.
func De(m Medio, monto decimal.Decimal) Desglose {
	return Desglose{}.Sumar(m, monto)
}

// Nuevo builds a breakdown from three amounts.
func Nuevo(efectivo, tarjeta, transferencia decimal.Decimal) Desglose {
	return Desglose{Efectivo: efectivo, Tarjeta: tarjeta, Transferencia: transferencia}
}

func (d Desglose) Total() decimal.Decimal {
	return d.Efectivo.Add(d.Tarjeta).Add(d.Transferencia)
}

func (d Desglose) IsZero() bool {
	return d.Efectivo.IsZero() && d.Tarjeta.IsZero() && d.Transferencia.IsZero()
}

func (d Desglose) Add(o Desglose) Desglose {
	return Desglose{
		Efectivo:      d.Efectivo.Add(o.Efectivo),
		Tarjeta:       d.Tarjeta.Add(o.Tarjeta),
		Transferencia: d.Transferencia.Add(o.Transferencia),
	}
}

// Get returns the amount held in channel m.
func (d Desglose) Get(m Medio) decimal.Decimal {
	switch m {
	case MedioEfectivo:
		return d.Efectivo
	case MedioTarjeta:
		return d.Tarjeta
	case MedioTransferencia:
		return d.Transferencia
	}
	return decimal.Zero
}

// Sumar adds monto to channel m. Unknown channels are ignored.
func (d Desglose) Sumar(m Medio, monto decimal.Decimal) Desglose {
	switch m {
	case MedioEfectivo:
		d.Efectivo = d.Efectivo.Add(monto)
	case MedioTarjeta:
		d.Tarjeta = d.Tarjeta.Add(monto)
	case MedioTransferencia:
		d.Transferencia = d.Transferencia.Add(monto)
	}
	return d
}

// Redondear rounds every channel to currency precision.
func (d Desglose) Redondear() Desglose {
	return Desglose{
		Efectivo:      d.Efectivo.Round(2),
		Tarjeta:       d.Tarjeta.Round(2),
		Transferencia: d.Transferencia.Round(2),
	}
}

// sinNegativos clamps every channel at zero.
func (d Desglose) sinNegativos() Desglose {
	return Desglose{
		Efectivo:      decimal.Max(d.Efectivo, decimal.Zero),
		Tarjeta:       decimal.Max(d.Tarjeta, decimal.Zero),
		Transferencia: decimal.Max(d.Transferencia, decimal.Zero),
	}
}

// MedioUnico returns the channel holding the whole amount, when only one
// channel is non-zero.
func (d Desglose) MedioUnico() (Medio, bool) {
	var found Medio
	n := 0
	for _, m := range Medios {
		if !d.Get(m).IsZero() {
			found = m
			n++
		}
	}
	return found, n == 1
}

// Sub returns d - o channel by channel. The result may be negative and is
// meant for differences, not for extracted breakdowns.
func (d Desglose) Sub(o Desglose) Desglose {
	return Desglose{
		Efectivo:      d.Efectivo.Sub(o.Efectivo),
		Tarjeta:       d.Tarjeta.Sub(o.Tarjeta),
		Transferencia: d.Transferencia.Sub(o.Transferencia),
	}
}
