package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"tools4care/internal/cierre"
	"tools4care/internal/dto"
	"tools4care/internal/jornada"
	"tools4care/internal/model"
	"tools4care/internal/repository"
	"tools4care/internal/service"
	mock_service "tools4care/internal/service/mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory store ──────────────────────────────────────────────────────────

type memStore struct {
	mu       sync.Mutex
	ventas   []model.Venta
	pagos    []model.Pago
	cierres  map[uuid.UUID]*model.CierreVan
	failRead error
	failTagP error
}

var (
	_ repository.MovimientoRepository = (*memStore)(nil)
	_ repository.CierreRepository     = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{cierres: map[uuid.UUID]*model.CierreVan{}}
}

func enRango(f, inicio, fin time.Time) bool { return !f.Before(inicio) && f.Before(fin) }

func (m *memStore) ListVentasAbiertas(_ context.Context, vanID uuid.UUID, inicio, fin time.Time) ([]model.Venta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead != nil {
		return nil, m.failRead
	}
	var out []model.Venta
	for _, v := range m.ventas {
		if v.VanID == vanID && v.CierreID == nil && enRango(v.Fecha, inicio, fin) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) ListPagosAbiertos(_ context.Context, vanID uuid.UUID, inicio, fin time.Time) ([]model.Pago, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Pago
	for _, p := range m.pagos {
		if p.VanID == vanID && p.CierreID == nil && enRango(p.Fecha, inicio, fin) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListVentasCerradas(_ context.Context, cierreID uuid.UUID) ([]model.Venta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Venta
	for _, v := range m.ventas {
		if v.CierreID != nil && *v.CierreID == cierreID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) ListPagosCerrados(_ context.Context, cierreID uuid.UUID) ([]model.Pago, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Pago
	for _, p := range m.pagos {
		if p.CierreID != nil && *p.CierreID == cierreID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) FindByVanDia(_ context.Context, vanID uuid.UUID, dia string) (*model.CierreVan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cierres {
		if c.VanID == vanID && c.Dia == dia {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*model.CierreVan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cierres[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (m *memStore) CreateCierre(_ context.Context, c *model.CierreVan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.cierres {
		if x.VanID == c.VanID && x.Dia == c.Dia {
			return cierre.ErrYaCerrado
		}
	}
	c.CreatedAt = time.Now()
	m.cierres[c.ID] = c
	return nil
}

func contiene(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (m *memStore) TagVentas(_ context.Context, e cierre.Etiqueta) (cierre.Etiquetado, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var r cierre.Etiquetado
	for i := range m.ventas {
		v := &m.ventas[i]
		if v.CierreID == nil && contiene(e.IDs, v.ID) {
			id := e.CierreID
			v.CierreID = &id
			r.Aplicadas++
		}
	}
	return r, nil
}

func (m *memStore) TagPagos(_ context.Context, e cierre.Etiqueta) (cierre.Etiquetado, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTagP != nil {
		return cierre.Etiquetado{}, m.failTagP
	}
	var r cierre.Etiquetado
	for i := range m.pagos {
		p := &m.pagos[i]
		if p.CierreID == nil && contiene(e.IDs, p.ID) {
			id := e.CierreID
			p.CierreID = &id
			r.Aplicadas++
		}
	}
	return r, nil
}

func (m *memStore) ListDesde(context.Context, time.Time, int) ([]model.CierreVan, error) {
	return nil, nil
}

func (m *memStore) ListEtiquetadoPendiente(context.Context, time.Time, int) ([]model.CierreVan, error) {
	return nil, nil
}

func (m *memStore) addVenta(v model.Venta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ventas = append(m.ventas, v)
}

type fakeClientes map[uuid.UUID]string

func (f fakeClientes) NombresClientes(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if n, ok := f[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

// ── Fixtures ─────────────────────────────────────────────────────────────────

const dia = "2025-07-14"

var (
	vanID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	ny, _ = time.LoadLocation("America/New_York")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func hora(h int) time.Time { return time.Date(2025, 7, 14, h, 0, 0, 0, ny) }

func ventaEfectivo(monto string, h int) model.Venta {
	return model.Venta{
		ID: uuid.New(), VanID: vanID, Fecha: hora(h),
		Total: dec(monto), TotalPagado: dec(monto), PagoEfectivo: ptr(monto),
	}
}

type fixture struct {
	store *memStore
	cola  *mock_service.MockColaReetiquetado
	svc   service.CierreService
}

func newFixture(t *testing.T, clientes fakeClientes) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	res, err := jornada.NewResolver("America/New_York")
	require.NoError(t, err)

	store := newMemStore()
	cola := mock_service.NewMockColaReetiquetado(ctrl)
	return &fixture{
		store: store,
		cola:  cola,
		svc:   service.NewCierreService(store, store, clientes, cola, res),
	}
}

func contado(efectivo, tarjeta, transferencia string) *dto.ContadoRequest {
	return &dto.ContadoRequest{Efectivo: dec(efectivo), Tarjeta: dec(tarjeta), Transferencia: dec(transferencia)}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestObtenerVista_OpenDay(t *testing.T) {
	cli := uuid.New()
	otro := uuid.New()
	f := newFixture(t, fakeClientes{cli: "Bodega Lupita"})

	f.store.ventas = []model.Venta{{
		ID: uuid.New(), VanID: vanID, ClienteID: &cli, Fecha: hora(9),
		Total: dec("100"), TotalPagado: dec("100"),
		PagoEfectivo: ptr("60"), PagoTarjeta: ptr("40"),
	}}
	f.store.pagos = []model.Pago{{
		ID: uuid.New(), VanID: vanID, ClienteID: &otro, Fecha: hora(10),
		Metodo: "Zelle", Monto: ptr("25"),
	}}

	v, err := f.svc.ObtenerVista(context.Background(), vanID, dia)
	require.NoError(t, err)

	assert.Equal(t, "abierto", v.Estado)
	assert.Nil(t, v.CierreID)
	assert.Equal(t, "60.00", v.Esperado.Efectivo.StringFixed(2))
	assert.Equal(t, "40.00", v.Esperado.Tarjeta.StringFixed(2))
	assert.Equal(t, "25.00", v.Esperado.Transferencia.StringFixed(2))
	assert.Equal(t, "0.00", v.CxC.Emitida.StringFixed(2))
	assert.Equal(t, "25.00", v.CxC.Cobrada.StringFixed(2))
	require.NotNil(t, v.Estimado)
	assert.Equal(t, "60.00", v.Estimado.Efectivo.StringFixed(2))
	assert.Equal(t, "25.00", v.Estimado.Transferencia.StringFixed(2))
	assert.True(t, v.Estimado.SinAsignar.IsZero())

	require.Len(t, v.Pendientes.Movimientos, 2)
	require.NotNil(t, v.Pendientes.Movimientos[0].Cliente)
	assert.Equal(t, "Bodega Lupita", *v.Pendientes.Movimientos[0].Cliente)
	assert.Nil(t, v.Pendientes.Movimientos[1].Cliente)
}

func TestObtenerVista_SaleShowsChangeDue(t *testing.T) {
	f := newFixture(t, nil)
	f.store.ventas = []model.Venta{{
		ID: uuid.New(), VanID: vanID, Fecha: hora(9),
		Total: dec("95"), TotalPagado: dec("100"), PagoEfectivo: ptr("100"),
	}}

	v, err := f.svc.ObtenerVista(context.Background(), vanID, dia)
	require.NoError(t, err)

	require.Len(t, v.Pendientes.Movimientos, 1)
	assert.Equal(t, "5.00", v.Pendientes.Movimientos[0].Cambio.StringFixed(2))
	assert.True(t, v.Pendientes.Movimientos[0].Credito.IsZero())
}

func TestConfirmar_ClosesDayAndRejectsSecondConfirm(t *testing.T) {
	f := newFixture(t, nil)
	f.store.ventas = []model.Venta{ventaEfectivo("100", 9)}
	ctx := context.Background()

	resp, err := f.svc.Confirmar(ctx, vanID, dia, nil, dto.ConfirmarCierreRequest{Contado: contado("100", "0", "0")})
	require.NoError(t, err)
	assert.True(t, resp.EtiquetadoCompleto)
	assert.Equal(t, "100.00", resp.Esperado.Efectivo.StringFixed(2))
	assert.True(t, resp.Variacion.Total.IsZero())
	assert.Len(t, resp.VentaIDs, 1)
	require.NotNil(t, f.store.ventas[0].CierreID)

	_, err = f.svc.Confirmar(ctx, vanID, dia, nil, dto.ConfirmarCierreRequest{Contado: contado("100", "0", "0")})
	assert.ErrorIs(t, err, cierre.ErrYaCerrado)
	assert.Len(t, f.store.cierres, 1)

	v, err := f.svc.ObtenerVista(ctx, vanID, dia)
	require.NoError(t, err)
	assert.Equal(t, "cerrado", v.Estado)
	require.NotNil(t, v.EnCierre)
	assert.Len(t, v.EnCierre.Movimientos, 1)
}

func TestConfirmar_EmptyDay(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Confirmar(context.Background(), vanID, dia, nil, dto.ConfirmarCierreRequest{Contado: contado("0", "0", "0")})
	assert.ErrorIs(t, err, cierre.ErrSinMovimientos)
	assert.Empty(t, f.store.cierres)
}

func TestObtenerVista_LateArrivalKeepsSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	f.store.ventas = []model.Venta{ventaEfectivo("100", 9)}
	ctx := context.Background()

	_, err := f.svc.Confirmar(ctx, vanID, dia, nil, dto.ConfirmarCierreRequest{Contado: contado("100", "0", "0")})
	require.NoError(t, err)

	f.store.addVenta(ventaEfectivo("20", 20))

	v, err := f.svc.ObtenerVista(ctx, vanID, dia)
	require.NoError(t, err)
	assert.Equal(t, "cerrado_con_pendientes", v.Estado)
	assert.Equal(t, "100.00", v.Esperado.Efectivo.StringFixed(2))
	require.NotNil(t, v.Adicional)
	assert.Equal(t, "20.00", v.Adicional.Efectivo.StringFixed(2))
	assert.Len(t, v.Pendientes.Movimientos, 1)
}

func TestPrevisualizarVariacion_Overage(t *testing.T) {
	f := newFixture(t, nil)
	f.store.ventas = []model.Venta{ventaEfectivo("100", 9)}

	v, err := f.svc.PrevisualizarVariacion(context.Background(), vanID, dia, dto.VariacionRequest{Contado: contado("105", "0", "0")})
	require.NoError(t, err)
	assert.Equal(t, "5.00", v.Total.StringFixed(2))
	assert.Equal(t, "5.00", v.Sobrante.StringFixed(2))
	assert.Equal(t, "advertencia", v.Clasificacion)
	assert.Empty(t, f.store.cierres)
}

func TestConfirmar_FetchFailureIsNotAnEmptyDay(t *testing.T) {
	f := newFixture(t, nil)
	f.store.failRead = errors.New("connection refused")

	_, err := f.svc.Confirmar(context.Background(), vanID, dia, nil, dto.ConfirmarCierreRequest{Contado: contado("0", "0", "0")})
	assert.ErrorIs(t, err, cierre.ErrFetchFailed)
	assert.NotErrorIs(t, err, cierre.ErrSinMovimientos)
	assert.Empty(t, f.store.cierres)

	_, err = f.svc.ObtenerVista(context.Background(), vanID, dia)
	assert.ErrorIs(t, err, cierre.ErrFetchFailed)
}

func TestConfirmar_PartialCommitEnqueuesRetag(t *testing.T) {
	f := newFixture(t, nil)
	f.store.ventas = []model.Venta{ventaEfectivo("50", 9)}
	f.store.pagos = []model.Pago{{ID: uuid.New(), VanID: vanID, Fecha: hora(10), Metodo: "zelle", Monto: ptr("10")}}
	f.store.failTagP = errors.New("statement timeout")
	ctx := context.Background()

	var encolado uuid.UUID
	f.cola.EXPECT().
		EncolarReetiquetado(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id uuid.UUID) error {
			encolado = id
			return nil
		}).
		Times(1)

	resp, err := f.svc.Confirmar(ctx, vanID, dia, nil, dto.ConfirmarCierreRequest{Contado: contado("50", "0", "10")})

	var parcial *cierre.CommitParcialError
	require.ErrorAs(t, err, &parcial)
	assert.Equal(t, cierre.PasoEtiquetarPagos, parcial.Paso)
	require.NotNil(t, resp)
	assert.False(t, resp.EtiquetadoCompleto)
	assert.Equal(t, resp.ID, encolado.String())

	v, err := f.svc.ObtenerVista(ctx, vanID, dia)
	require.NoError(t, err)
	assert.Equal(t, "cerrado", v.Estado)
	assert.True(t, v.EtiquetadoPendiente)

	f.store.failTagP = nil
	r, err := f.svc.Reetiquetar(ctx, encolado)
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.VentasEtiquetadas)
	assert.Equal(t, int64(1), r.PagosEtiquetados)

	c, err := f.svc.ObtenerCierre(ctx, encolado)
	require.NoError(t, err)
	assert.True(t, c.EtiquetadoCompleto)
}

func TestReetiquetar_RowMovedToAnotherDayIsStillTagged(t *testing.T) {
	f := newFixture(t, nil)
	f.store.ventas = []model.Venta{ventaEfectivo("40", 9)}
	f.store.pagos = []model.Pago{{ID: uuid.New(), VanID: vanID, Fecha: hora(10), Metodo: "zelle", Monto: ptr("10")}}
	f.store.failTagP = errors.New("statement timeout")
	ctx := context.Background()
	f.cola.EXPECT().EncolarReetiquetado(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	resp, err := f.svc.Confirmar(ctx, vanID, dia, nil, dto.ConfirmarCierreRequest{Contado: contado("40", "0", "10")})
	require.ErrorIs(t, err, cierre.ErrCommitParcial)
	id := uuid.MustParse(resp.ID)

	// The payment is edited onto the next day before the retry runs.
	f.store.mu.Lock()
	f.store.pagos[0].Fecha = f.store.pagos[0].Fecha.Add(24 * time.Hour)
	f.store.mu.Unlock()
	f.store.failTagP = nil

	r, err := f.svc.Reetiquetar(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.PagosEtiquetados)
	require.NotNil(t, f.store.pagos[0].CierreID)
	assert.Equal(t, id, *f.store.pagos[0].CierreID)

	siguiente, err := f.svc.ObtenerVista(ctx, vanID, "2025-07-15")
	require.NoError(t, err)
	assert.Empty(t, siguiente.Pendientes.Movimientos)
}

func TestObtenerCierre_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.ObtenerCierre(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrCierreNoEncontrado)
}

func TestObtenerVista_InvalidDay(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.ObtenerVista(context.Background(), vanID, "14/07/2025")
	assert.ErrorIs(t, err, jornada.ErrDiaInvalido)
}

func TestEsErrorPermanente(t *testing.T) {
	assert.True(t, service.EsErrorPermanente(service.ErrCierreNoEncontrado))
	assert.True(t, service.EsErrorPermanente(fmt.Errorf("cierre x: %w", jornada.ErrDiaInvalido)))
	assert.False(t, service.EsErrorPermanente(errors.New("timeout")))
}
