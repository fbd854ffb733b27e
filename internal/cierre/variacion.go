package cierre

import (
	"tools4care/internal/desglose"

	"github.com/shopspring/decimal"
)

// Clasificacion grades a variance. It is informational and never blocks a
// confirm.
type Clasificacion string

const (
	ClasificacionNormal      Clasificacion = "normal"
	ClasificacionAdvertencia Clasificacion = "advertencia"
	ClasificacionCritico     Clasificacion = "critico"
)

var (
	umbralNormal      = decimal.NewFromInt(1)
	umbralAdvertencia = decimal.NewFromInt(5)
	cien              = decimal.NewFromInt(100)
)

// Variacion is counted minus expected. Positive is over, negative is short.
type Variacion struct {
	PorMedio desglose.Desglose
	Total    decimal.Decimal
	// Porcentaje is relative to the expected total; zero when nothing was expected.
	Porcentaje    decimal.Decimal
	Clasificacion Clasificacion
}

// CalcularVariacion compares counted cash against the system grid.
func CalcularVariacion(contado, esperado desglose.Desglose) Variacion {
	diff := contado.Sub(esperado).Redondear()
	v := Variacion{
		PorMedio: diff,
		Total:    contado.Total().Sub(esperado.Total()).Round(2),
	}
	if base := esperado.Total(); !base.IsZero() {
		v.Porcentaje = v.Total.Div(base).Mul(cien).Round(2)
	}
	v.Clasificacion = clasificar(v.Total, esperado.Total())
	return v
}

// Sobrante and Faltante pick one side of the signed total.
func (v Variacion) Sobrante() decimal.Decimal { return decimal.Max(v.Total, decimal.Zero) }
func (v Variacion) Faltante() decimal.Decimal { return decimal.Max(v.Total.Neg(), decimal.Zero) }

func clasificar(diff, esperado decimal.Decimal) Clasificacion {
	if diff.IsZero() {
		return ClasificacionNormal
	}
	if esperado.IsZero() {
		return ClasificacionCritico
	}
	pct := diff.Abs().Div(esperado.Abs()).Mul(cien)
	switch {
	case pct.LessThanOrEqual(umbralNormal):
		return ClasificacionNormal
	case pct.LessThanOrEqual(umbralAdvertencia):
		return ClasificacionAdvertencia
	default:
		return ClasificacionCritico
	}
}
