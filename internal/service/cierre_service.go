package service

import (
	"context"
	"errors"

	"tools4care/internal/cierre"
	"tools4care/internal/dto"
	"tools4care/internal/jornada"
	"tools4care/internal/model"
	"tools4care/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"
)

// ErrCierreNoEncontrado is returned when a closeout id does not exist.
var ErrCierreNoEncontrado = errors.New("cierre no encontrado")

// EsErrorPermanente reports errors a re-tag retry cannot fix.
func EsErrorPermanente(err error) bool {
	return errors.Is(err, ErrCierreNoEncontrado) || errors.Is(err, jornada.ErrDiaInvalido)
}

type CierreService interface {
	ObtenerVista(ctx context.Context, vanID uuid.UUID, dia string) (*dto.VistaCierreResponse, error)
	PrevisualizarVariacion(ctx context.Context, vanID uuid.UUID, dia string, req dto.VariacionRequest) (*dto.VariacionResponse, error)
	// Confirmar commits the day. On a partial commit it returns both the
	// stored closeout and a *cierre.CommitParcialError.
	Confirmar(ctx context.Context, vanID uuid.UUID, dia string, usuarioID *uuid.UUID, req dto.ConfirmarCierreRequest) (*dto.CierreResponse, error)
	ObtenerCierre(ctx context.Context, id uuid.UUID) (*dto.CierreResponse, error)
	Reetiquetar(ctx context.Context, id uuid.UUID) (*dto.ReetiquetarResponse, error)
}

type cierreService struct {
	movs     repository.MovimientoRepository
	cierres  repository.CierreRepository
	clientes repository.ClienteRepository
	cola     ColaReetiquetado
	res      *jornada.Resolver
}

func NewCierreService(
	movs repository.MovimientoRepository,
	cierres repository.CierreRepository,
	clientes repository.ClienteRepository,
	cola ColaReetiquetado,
	res *jornada.Resolver,
) CierreService {
	return &cierreService{movs: movs, cierres: cierres, clientes: clientes, cola: cola, res: res}
}

// ── Carga ─────────────────────────────────────────────────────────────────────
// Reads run concurrently and the first failure cancels the rest. A failed
// read is never treated as an empty list.

type carga struct {
	entrada cierre.Entrada
}

func (s *cierreService) cargar(ctx context.Context, vanID uuid.UUID, diaRaw string) (*carga, error) {
	dia, err := s.res.Parse(diaRaw)
	if err != nil {
		return nil, err
	}
	inicio, fin, err := s.res.Limites(dia)
	if err != nil {
		return nil, err
	}
	c := &carga{entrada: cierre.Entrada{VanID: vanID, Dia: dia}}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		cv, err := s.cierres.FindByVanDia(ctx, vanID, dia.String())
		if err != nil {
			return &cierre.FetchError{Fuente: "cierre", Err: err}
		}
		c.entrada.Cierre = cv
		return nil
	})
	p.Go(func(ctx context.Context) error {
		ventas, err := s.movs.ListVentasAbiertas(ctx, vanID, inicio, fin)
		if err != nil {
			return &cierre.FetchError{Fuente: "ventas_abiertas", Err: err}
		}
		c.entrada.VentasAbiertas = ventas
		return nil
	})
	p.Go(func(ctx context.Context) error {
		pagos, err := s.movs.ListPagosAbiertos(ctx, vanID, inicio, fin)
		if err != nil {
			return &cierre.FetchError{Fuente: "pagos_abiertos", Err: err}
		}
		c.entrada.PagosAbiertos = pagos
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	if c.entrada.Cierre == nil {
		return c, nil
	}

	cierreID := c.entrada.Cierre.ID
	p = pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		ventas, err := s.movs.ListVentasCerradas(ctx, cierreID)
		if err != nil {
			return &cierre.FetchError{Fuente: "ventas_cerradas", Err: err}
		}
		c.entrada.VentasCerradas = ventas
		return nil
	})
	p.Go(func(ctx context.Context) error {
		pagos, err := s.movs.ListPagosCerrados(ctx, cierreID)
		if err != nil {
			return &cierre.FetchError{Fuente: "pagos_cerrados", Err: err}
		}
		c.entrada.PagosCerrados = pagos
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

// ── ObtenerVista ──────────────────────────────────────────────────────────────

func (s *cierreService) ObtenerVista(ctx context.Context, vanID uuid.UUID, dia string) (*dto.VistaCierreResponse, error) {
	c, err := s.cargar(ctx, vanID, dia)
	if err != nil {
		return nil, err
	}
	v := cierre.Construir(c.entrada, s.res)
	nombres := s.nombres(ctx, v)

	resp := &dto.VistaCierreResponse{
		VanID:               vanID.String(),
		Dia:                 v.Dia.String(),
		Estado:              string(v.Estado),
		Esperado:            montos(v.Esperado),
		CxC:                 cxcDTO(v.CxC),
		Pendientes:          s.seccionDTO(v.Pendientes, nombres),
		SinClasificar:       v.Grilla.SinClasificar,
		Colapsados:          v.Grilla.Colapsados,
		EtiquetadoPendiente: v.EtiquetadoPendiente,
	}

	if v.Cierre == nil {
		est := cierre.Estimar(c.entrada.VentasAbiertas, c.entrada.PagosAbiertos)
		resp.Estimado = &dto.EstimadoResponse{
			Efectivo:      est.Efectivo,
			Tarjeta:       est.Tarjeta,
			Transferencia: est.Transferencia,
			SinAsignar:    est.SinAsignar,
		}
		return resp, nil
	}

	id := v.Cierre.ID.String()
	adicional := montos(v.Adicional)
	contado := montos(v.Cierre.Contado())
	variacion := variacionDTO(cierre.CalcularVariacion(v.Cierre.Contado(), v.Cierre.Esperado()))
	enCierre := s.seccionDTO(v.EnCierre, nombres)

	resp.CierreID = &id
	resp.Adicional = &adicional
	resp.Contado = &contado
	resp.Variacion = &variacion
	resp.EnCierre = &enCierre
	return resp, nil
}

// ── PrevisualizarVariacion ────────────────────────────────────────────────────

func (s *cierreService) PrevisualizarVariacion(ctx context.Context, vanID uuid.UUID, dia string, req dto.VariacionRequest) (*dto.VariacionResponse, error) {
	c, err := s.cargar(ctx, vanID, dia)
	if err != nil {
		return nil, err
	}
	v := cierre.Construir(c.entrada, s.res)
	resp := variacionDTO(cierre.CalcularVariacion(contadoDe(req.Contado), v.Esperado))
	return &resp, nil
}

// ── Confirmar ─────────────────────────────────────────────────────────────────

func (s *cierreService) Confirmar(ctx context.Context, vanID uuid.UUID, dia string, usuarioID *uuid.UUID, req dto.ConfirmarCierreRequest) (*dto.CierreResponse, error) {
	c, err := s.cargar(ctx, vanID, dia)
	if err != nil {
		return nil, err
	}
	v := cierre.Construir(c.entrada, s.res)
	if err := cierre.PuedeConfirmar(c.entrada.Cierre, v.Pendientes.Movimientos()); err != nil {
		return nil, err
	}

	snap := cierre.NuevoCierre(v, contadoDe(req.Contado), req.Comentario, usuarioID)
	resumen, err := cierre.Commit(ctx, s.cierres, snap)

	var parcial *cierre.CommitParcialError
	if errors.As(err, &parcial) {
		log.Error().Err(err).
			Str("cierre_id", snap.ID.String()).
			Str("van_id", vanID.String()).
			Str("dia", snap.Dia).
			Str("paso", string(parcial.Paso)).
			Msg("cierre_service: partial commit, enqueueing re-tag")
		if qErr := s.cola.EncolarReetiquetado(context.WithoutCancel(ctx), snap.ID); qErr != nil {
			log.Error().Err(qErr).Str("cierre_id", snap.ID.String()).
				Msg("cierre_service: enqueue failed, leaving it to retry_cron")
		}
		resp := cierreDTO(snap, false)
		return &resp, err
	}
	if err != nil {
		return nil, err
	}

	variacion := cierre.CalcularVariacion(snap.Contado(), snap.Esperado())
	log.Info().
		Str("cierre_id", snap.ID.String()).
		Str("van_id", vanID.String()).
		Str("dia", snap.Dia).
		Int64("ventas", resumen.Ventas).
		Int64("pagos", resumen.Pagos).
		Str("variacion", variacion.Total.StringFixed(2)).
		Str("clasificacion", string(variacion.Clasificacion)).
		Msg("cierre_service: day closed")

	resp := cierreDTO(snap, true)
	return &resp, nil
}

// ── ObtenerCierre ─────────────────────────────────────────────────────────────

func (s *cierreService) ObtenerCierre(ctx context.Context, id uuid.UUID) (*dto.CierreResponse, error) {
	c, err := s.findCierre(ctx, id)
	if err != nil {
		return nil, err
	}

	var ventas []model.Venta
	var pagos []model.Pago
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		ventas, err = s.movs.ListVentasCerradas(ctx, id)
		if err != nil {
			return &cierre.FetchError{Fuente: "ventas_cerradas", Err: err}
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		pagos, err = s.movs.ListPagosCerrados(ctx, id)
		if err != nil {
			return &cierre.FetchError{Fuente: "pagos_cerrados", Err: err}
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	idsV, errV := c.IDsVentas()
	idsP, errP := c.IDsPagos()
	completo := errV == nil && errP == nil && len(ventas) >= len(idsV) && len(pagos) >= len(idsP)

	resp := cierreDTO(c, completo)
	return &resp, nil
}

// ── Reetiquetar ───────────────────────────────────────────────────────────────
// Re-drives both tagging steps. Safe to call any number of times.

func (s *cierreService) Reetiquetar(ctx context.Context, id uuid.UUID) (*dto.ReetiquetarResponse, error) {
	c, err := s.findCierre(ctx, id)
	if err != nil {
		return nil, err
	}

	r, err := cierre.Reetiquetar(ctx, s.cierres, c)
	if err != nil {
		return nil, err
	}
	if r.Ventas > 0 || r.Pagos > 0 {
		log.Info().Str("cierre_id", c.ID.String()).Int64("ventas", r.Ventas).Int64("pagos", r.Pagos).
			Msg("cierre_service: re-tag applied")
	}
	return &dto.ReetiquetarResponse{
		CierreID:          c.ID.String(),
		VentasEtiquetadas: r.Ventas,
		PagosEtiquetados:  r.Pagos,
	}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *cierreService) findCierre(ctx context.Context, id uuid.UUID) (*model.CierreVan, error) {
	c, err := s.cierres.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCierreNoEncontrado
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// nombres resolves client names for display. A lookup failure only drops
// the names.
func (s *cierreService) nombres(ctx context.Context, v cierre.Vista) map[uuid.UUID]string {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	add := func(id *uuid.UUID) {
		if id != nil && !seen[*id] {
			seen[*id] = true
			ids = append(ids, *id)
		}
	}
	for _, sec := range []cierre.Seccion{v.EnCierre, v.Pendientes} {
		for _, x := range sec.Ventas {
			add(x.ClienteID)
		}
		for _, x := range sec.Pagos {
			add(x.ClienteID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	nombres, err := s.clientes.NombresClientes(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Int("clientes", len(ids)).Msg("cierre_service: client names unavailable")
		return nil
	}
	return nombres
}

func (s *cierreService) seccionDTO(sec cierre.Seccion, nombres map[uuid.UUID]string) dto.SeccionResponse {
	items := make([]dto.MovimientoItem, 0, sec.Movimientos())
	for _, x := range sec.Ventas {
		m := cierre.DeVenta(x, s.res)
		it := itemDTO(m, x.Total, nombres)
		it.Credito = x.Credito()
		it.Cambio = x.Cambio()
		items = append(items, it)
	}
	for _, x := range sec.Pagos {
		m := cierre.DePago(x, s.res)
		items = append(items, itemDTO(m, m.Desglose.Total(), nombres))
	}
	return dto.SeccionResponse{
		Movimientos: items,
		Grilla:      montos(sec.Grilla.Total),
		CxC:         cxcDTO(sec.CxC),
	}
}
