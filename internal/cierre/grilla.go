package cierre

import (
	"tools4care/internal/desglose"
	"tools4care/internal/jornada"
	"tools4care/internal/model"

	"github.com/shopspring/decimal"
)

// Grupo is every movement that describes the same money.
type Grupo struct {
	Clave    string
	Miembros []Movimiento
	Aporte   desglose.Desglose
}

// Grilla is the system grid: what the system believes was collected per
// tender channel.
type Grilla struct {
	Total  desglose.Desglose
	Grupos []Grupo
	// Colapsados counts movements absorbed by another member of their group.
	Colapsados int
	// SinClasificar is money whose method label no synonym recognized.
	SinClasificar decimal.Decimal
}

// ConstruirGrilla computes the grid for the given sales and payments.
func ConstruirGrilla(ventas []model.Venta, pagos []model.Pago, res *jornada.Resolver) Grilla {
	return Agrupar(Unificar(ventas, pagos, res))
}

// Agrupar groups movements by key in first-seen order. A group holding sales
// contributes the sum of its sales, and its payments are mirrors of them. A
// group of payments only contributes the sum of its payments, so installments
// against one reference add up the same way CxCCobrada sees them.
func Agrupar(movs []Movimiento) Grilla {
	var g Grilla
	idx := make(map[string]int, len(movs))
	for _, m := range movs {
		i, ok := idx[m.Clave]
		if !ok {
			g.Grupos = append(g.Grupos, Grupo{Clave: m.Clave})
			i = len(g.Grupos) - 1
			idx[m.Clave] = i
		}
		g.Grupos[i].Miembros = append(g.Grupos[i].Miembros, m)
		g.SinClasificar = g.SinClasificar.Add(m.SinClasificar)
	}

	for i := range g.Grupos {
		grp := &g.Grupos[i]
		grp.Aporte = aporte(grp.Miembros)
		g.Total = g.Total.Add(grp.Aporte)
		g.Colapsados += colapsados(grp.Miembros)
	}
	g.Total = g.Total.Redondear()
	return g
}

func aporte(miembros []Movimiento) desglose.Desglose {
	var ventas, pagos desglose.Desglose
	hayVentas := false
	for _, m := range miembros {
		if m.Origen == OrigenVenta {
			ventas = ventas.Add(m.Desglose)
			hayVentas = true
			continue
		}
		pagos = pagos.Add(m.Desglose)
	}
	if hayVentas {
		return ventas
	}
	return pagos
}

// colapsados counts the payments a sale absorbed. Payment-only groups absorb
// nothing.
func colapsados(miembros []Movimiento) int {
	n := 0
	hayVentas := false
	for _, m := range miembros {
		if m.Origen == OrigenVenta {
			hayVentas = true
			continue
		}
		n++
	}
	if !hayVentas {
		return 0
	}
	return n
}

// Estimado is the naive open-day total: every sale's tender plus every
// standalone payment, with no grouping by key.
type Estimado struct {
	desglose.Desglose
	SinAsignar decimal.Decimal
}

// Estimar sums what ConstruirGrilla would see before grouping. Payments linked
// to a sale are left out. It is only shown next to the grid.
func Estimar(ventas []model.Venta, pagos []model.Pago) Estimado {
	var e Estimado
	for _, v := range ventas {
		det := desglose.ExtraerDetalle(v.Registro())
		e.Desglose = e.Desglose.Add(det.Desglose)
		e.SinAsignar = e.SinAsignar.Add(det.SinClasificar)
	}
	for _, p := range pagos {
		if p.VentaID != nil {
			continue
		}
		det := desglose.ExtraerDetalle(p.Registro())
		e.Desglose = e.Desglose.Add(det.Desglose)
		e.SinAsignar = e.SinAsignar.Add(det.SinClasificar)
	}
	e.Desglose = e.Desglose.Redondear()
	e.SinAsignar = e.SinAsignar.Round(2)
	return e
}
