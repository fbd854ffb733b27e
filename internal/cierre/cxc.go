package cierre

import (
	"tools4care/internal/desglose"
	"tools4care/internal/jornada"
	"tools4care/internal/model"

	"github.com/shopspring/decimal"
)

// CxC holds the accounts-receivable movement of a day.
type CxC struct {
	// Emitida is credit extended on the day's sales.
	Emitida decimal.Decimal `json:"emitida"`
	// Cobrada is money collected against older debt: standalone payments only.
	Cobrada decimal.Decimal `json:"cobrada"`
}

// CalcularCxC computes both figures for one day. Payments linked to a sale
// never count as collected, whether or not the sale is in scope.
func CalcularCxC(ventas []model.Venta, pagos []model.Pago, dia jornada.Dia, res *jornada.Resolver) CxC {
	return CxC{
		Emitida: CxCEmitida(ventas),
		Cobrada: CxCCobrada(pagos, dia, res),
	}
}

// CxCEmitida sums max(0, total - pagado) over the sales.
func CxCEmitida(ventas []model.Venta) decimal.Decimal {
	total := decimal.Zero
	for _, v := range ventas {
		total = total.Add(v.Credito())
	}
	return total.Round(2)
}

// CxCCobrada sums the breakdown totals of standalone payments dated on dia.
func CxCCobrada(pagos []model.Pago, dia jornada.Dia, res *jornada.Resolver) decimal.Decimal {
	total := decimal.Zero
	for _, p := range pagos {
		if p.VentaID != nil || !res.Contiene(dia, p.Fecha) {
			continue
		}
		total = total.Add(desglose.Extraer(p.Registro()).Total())
	}
	return total.Round(2)
}
