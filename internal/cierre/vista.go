package cierre

import (
	"tools4care/internal/desglose"
	"tools4care/internal/jornada"
	"tools4care/internal/model"

	"github.com/google/uuid"
)

// Entrada is everything read for one (van, día).
type Entrada struct {
	VanID  uuid.UUID
	Dia    jornada.Dia
	Cierre *model.CierreVan

	// Rows tagged with the closeout id. Empty when the day is open.
	VentasCerradas []model.Venta
	PagosCerrados  []model.Pago
	// Rows of the day with no closeout id.
	VentasAbiertas []model.Venta
	PagosAbiertos  []model.Pago
}

// Seccion is one side of the reconciliation view.
type Seccion struct {
	Ventas []model.Venta
	Pagos  []model.Pago
	Grilla Grilla
	CxC    CxC
}

func (s Seccion) Movimientos() int { return len(s.Ventas) + len(s.Pagos) }

// Vista is the reconciliation view of one (van, día). On an open day every
// movement is pending. On a closed day EnCierre is what the snapshot consumed
// and Pendientes is what arrived later; the snapshot figures stay as stored.
type Vista struct {
	VanID  uuid.UUID
	Dia    jornada.Dia
	Estado Estado
	Cierre *model.CierreVan

	EnCierre   Seccion
	Pendientes Seccion

	// Grilla covers both sections, so late mirrors of closed sales collapse.
	Grilla Grilla
	// Esperado is the snapshot grid when closed, the live grid when open.
	Esperado desglose.Desglose
	// Adicional is what late arrivals add to the grid. Zero when open.
	Adicional desglose.Desglose
	// CxC is the snapshot's when closed, computed when open.
	CxC CxC

	// EtiquetadoPendiente is true when rows the snapshot consumed are still
	// untagged, i.e. a commit was left partial.
	EtiquetadoPendiente bool
}

// Construir builds the view. Rows are partitioned by the snapshot's id lists,
// not by their tag, so a partial commit still reports correctly.
func Construir(in Entrada, res *jornada.Resolver) Vista {
	v := Vista{VanID: in.VanID, Dia: in.Dia, Cierre: in.Cierre}

	if in.Cierre == nil {
		v.Pendientes = seccion(in.VentasAbiertas, in.PagosAbiertos, in.Dia, res)
		v.Grilla = v.Pendientes.Grilla
		v.Esperado = v.Grilla.Total
		v.CxC = v.Pendientes.CxC
		v.Estado = EstadoDe(nil, 0)
		return v
	}

	idsVentas, errV := in.Cierre.IDsVentas()
	idsPagos, errP := in.Cierre.IDsPagos()
	consumidasV := conjunto(idsVentas)
	consumidosP := conjunto(idsPagos)
	// Without readable id lists, tags are the only partition left.
	porTag := errV != nil || errP != nil

	ventasCierre := append([]model.Venta(nil), in.VentasCerradas...)
	pagosCierre := append([]model.Pago(nil), in.PagosCerrados...)
	vistosV := make(map[uuid.UUID]bool, len(ventasCierre))
	vistosP := make(map[uuid.UUID]bool, len(pagosCierre))
	for _, x := range ventasCierre {
		vistosV[x.ID] = true
	}
	for _, x := range pagosCierre {
		vistosP[x.ID] = true
	}

	var ventasPend []model.Venta
	var pagosPend []model.Pago
	for _, x := range in.VentasAbiertas {
		switch {
		case vistosV[x.ID]:
		case !porTag && consumidasV[x.ID]:
			ventasCierre = append(ventasCierre, x)
			v.EtiquetadoPendiente = true
		default:
			ventasPend = append(ventasPend, x)
		}
	}
	for _, x := range in.PagosAbiertos {
		switch {
		case vistosP[x.ID]:
		case !porTag && consumidosP[x.ID]:
			pagosCierre = append(pagosCierre, x)
			v.EtiquetadoPendiente = true
		default:
			pagosPend = append(pagosPend, x)
		}
	}

	v.EnCierre = seccion(ventasCierre, pagosCierre, in.Dia, res)
	v.Pendientes = seccion(ventasPend, pagosPend, in.Dia, res)
	v.Grilla = ConstruirGrilla(
		append(append([]model.Venta(nil), ventasCierre...), ventasPend...),
		append(append([]model.Pago(nil), pagosCierre...), pagosPend...),
		res,
	)
	v.Esperado = in.Cierre.Esperado()
	v.Adicional = v.Grilla.Total.Sub(v.EnCierre.Grilla.Total)
	v.CxC = CxC{Emitida: in.Cierre.CxCEmitida, Cobrada: in.Cierre.CxCCobrada}
	v.Estado = EstadoDe(in.Cierre, v.Pendientes.Movimientos())
	return v
}

// NuevoCierre builds the snapshot row for an open day. Every pending row is
// consumed.
func NuevoCierre(v Vista, contado desglose.Desglose, comentario *string, creadoPor *uuid.UUID) *model.CierreVan {
	esperado := v.Grilla.Total.Redondear()
	contado = contado.Redondear()
	return &model.CierreVan{
		ID:                    uuid.New(),
		VanID:                 v.VanID,
		Dia:                   v.Dia.String(),
		EsperadoEfectivo:      esperado.Efectivo,
		EsperadoTarjeta:       esperado.Tarjeta,
		EsperadoTransferencia: esperado.Transferencia,
		ContadoEfectivo:       contado.Efectivo,
		ContadoTarjeta:        contado.Tarjeta,
		ContadoTransferencia:  contado.Transferencia,
		CxCEmitida:            v.CxC.Emitida,
		CxCCobrada:            v.CxC.Cobrada,
		Comentario:            comentario,
		VentaIDs:              model.EncodeIDs(idsVentas(v.Pendientes.Ventas)),
		PagoIDs:               model.EncodeIDs(idsPagos(v.Pendientes.Pagos)),
		CreadoPor:             creadoPor,
	}
}

func seccion(ventas []model.Venta, pagos []model.Pago, dia jornada.Dia, res *jornada.Resolver) Seccion {
	return Seccion{
		Ventas: ventas,
		Pagos:  pagos,
		Grilla: ConstruirGrilla(ventas, pagos, res),
		CxC:    CalcularCxC(ventas, pagos, dia, res),
	}
}

func conjunto(ids []uuid.UUID) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func idsVentas(vs []model.Venta) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(vs))
	for _, x := range vs {
		out = append(out, x.ID)
	}
	return out
}

func idsPagos(ps []model.Pago) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ps))
	for _, x := range ps {
		out = append(out, x.ID)
	}
	return out
}
