package service

import (
	"time"

	"tools4care/internal/cierre"
	"tools4care/internal/desglose"
	"tools4care/internal/dto"
	"tools4care/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func montos(d desglose.Desglose) dto.MontosPorMedio {
	return dto.MontosPorMedio{
		Efectivo:      d.Efectivo,
		Tarjeta:       d.Tarjeta,
		Transferencia: d.Transferencia,
		Total:         d.Total(),
	}
}

func contadoDe(req *dto.ContadoRequest) desglose.Desglose {
	if req == nil {
		return desglose.Desglose{}
	}
	return desglose.Nuevo(req.Efectivo, req.Tarjeta, req.Transferencia)
}

func cxcDTO(c cierre.CxC) dto.CxCResponse {
	return dto.CxCResponse{Emitida: c.Emitida, Cobrada: c.Cobrada}
}

func variacionDTO(v cierre.Variacion) dto.VariacionResponse {
	return dto.VariacionResponse{
		PorMedio:      montos(v.PorMedio),
		Total:         v.Total,
		Porcentaje:    v.Porcentaje,
		Clasificacion: string(v.Clasificacion),
		Sobrante:      v.Sobrante(),
		Faltante:      v.Faltante(),
	}
}

func itemDTO(m cierre.Movimiento, monto decimal.Decimal, nombres map[uuid.UUID]string) dto.MovimientoItem {
	it := dto.MovimientoItem{
		ID:       m.ID.String(),
		Tipo:     string(m.Origen),
		Fecha:    m.Fecha.Format(time.RFC3339),
		Monto:    monto,
		Desglose: montos(m.Desglose),
		Regla:    string(m.Regla),
	}
	if m.ClienteID != nil {
		id := m.ClienteID.String()
		it.ClienteID = &id
		if n, ok := nombres[*m.ClienteID]; ok {
			it.Cliente = &n
		}
	}
	if m.Origen == cierre.OrigenPago && m.VentaID != nil {
		id := m.VentaID.String()
		it.VentaID = &id
	}
	return it
}

func cierreDTO(c *model.CierreVan, etiquetadoCompleto bool) dto.CierreResponse {
	idsV, _ := c.IDsVentas()
	idsP, _ := c.IDsPagos()
	resp := dto.CierreResponse{
		ID:                 c.ID.String(),
		VanID:              c.VanID.String(),
		Dia:                c.Dia,
		Esperado:           montos(c.Esperado()),
		Contado:            montos(c.Contado()),
		Variacion:          variacionDTO(cierre.CalcularVariacion(c.Contado(), c.Esperado())),
		CxC:                dto.CxCResponse{Emitida: c.CxCEmitida, Cobrada: c.CxCCobrada},
		Comentario:         c.Comentario,
		VentaIDs:           idStrings(idsV),
		PagoIDs:            idStrings(idsP),
		CreatedAt:          c.CreatedAt.Format(time.RFC3339),
		EtiquetadoCompleto: etiquetadoCompleto,
	}
	if c.CreadoPor != nil {
		s := c.CreadoPor.String()
		resp.CreadoPor = &s
	}
	return resp
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
