//go:build integration

package router

// End-to-end closeout cycle against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"tools4care/internal/config"
	"tools4care/internal/dto"
	"tools4care/internal/infra"
	"tools4care/internal/middleware"
	"tools4care/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

const e2eSecret = "e2e-secret-key-with-enough-bytes!"

// ── Helpers ──────────────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
	token  string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("tools4care_test"),
		tcPostgres.WithUsername("tools4care"),
		tcPostgres.WithPassword("tools4care"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                   "test",
		DatabaseURL:           pgURL,
		RedisURL:              rdURL,
		JWTSecret:             e2eSecret,
		BusinessTimezone:      "America/New_York",
		MovementSource:        config.FuentePostgres,
		WorkerPoolSize:        1,
		RetagCronSeconds:      60,
		ClientCacheTTLSeconds: 60,
		RateLimitRPS:          1000,
		RateLimitBurst:        1000,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	app, err := New(cfg, db, rdb)
	require.NoError(t, err)

	bgCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	app.StartBackground(bgCtx, cfg, rdb)

	srv := httptest.NewServer(app.Engine)
	t.Cleanup(srv.Close)

	claims := jwt.MapClaims{
		"user_id": uuid.NewString(), "username": "supervisor", "rol": middleware.RolSupervisor,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(e2eSecret))
	require.NoError(t, err)

	return &testEnv{server: srv, db: db, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_CloseoutCycle(t *testing.T) {
	env := setupTestEnv(t)
	van := uuid.New()
	cliente := model.Cliente{ID: uuid.New(), Nombre: "Bodega La Esquina"}
	require.NoError(t, env.db.Create(&cliente).Error)

	// 11:00 EDT on 2026-03-14.
	fecha := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	key := "venta-001"
	venta := model.Venta{
		ID: uuid.New(), VanID: van, ClienteID: &cliente.ID, Fecha: fecha,
		Total: decimal.RequireFromString("100"), TotalPagado: decimal.RequireFromString("80"),
		PagoEfectivo: money("50"), PagoTarjeta: money("30"),
		IdempotencyKey: &key,
	}
	require.NoError(t, env.db.Create(&venta).Error)

	// Mirror of the sale's tender plus a standalone collection.
	mirror := model.Pago{ID: uuid.New(), VanID: van, ClienteID: &cliente.ID, Fecha: fecha.Add(time.Minute),
		Metodo: "efectivo", Monto: money("50"), VentaID: &venta.ID}
	abono := model.Pago{ID: uuid.New(), VanID: van, ClienteID: &cliente.ID, Fecha: fecha.Add(2 * time.Hour),
		Metodo: "Zelle", Monto: money("20")}
	require.NoError(t, env.db.Create(&mirror).Error)
	require.NoError(t, env.db.Create(&abono).Error)

	base := "/v1/vans/" + van.String() + "/cierres/2026-03-14"

	// 1. Open view
	resp := env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var vista dto.VistaCierreResponse
	decodeJSON(t, resp, &vista)
	assert.Equal(t, "abierto", vista.Estado)
	assert.Equal(t, "50.00", vista.Esperado.Efectivo.StringFixed(2))
	assert.Equal(t, "30.00", vista.Esperado.Tarjeta.StringFixed(2))
	assert.Equal(t, "20.00", vista.Esperado.Transferencia.StringFixed(2))
	assert.Equal(t, "20.00", vista.CxC.Emitida.StringFixed(2))
	assert.Equal(t, "20.00", vista.CxC.Cobrada.StringFixed(2))

	// 2. Confirm
	resp = env.do(t, http.MethodPost, base, map[string]any{
		"contado": map[string]string{"efectivo": "55", "tarjeta": "30", "transferencia": "20"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var cierre dto.CierreResponse
	decodeJSON(t, resp, &cierre)
	assert.True(t, cierre.EtiquetadoCompleto)
	assert.Equal(t, "5.00", cierre.Variacion.Total.StringFixed(2))
	assert.Equal(t, "advertencia", cierre.Variacion.Clasificacion)

	// 3. Rows are tagged
	var sinEtiquetar int64
	require.NoError(t, env.db.Model(&model.Pago{}).Where("van_id = ? AND cierre_id IS NULL", van).Count(&sinEtiquetar).Error)
	assert.Zero(t, sinEtiquetar)

	// 4. Second confirm is rejected
	resp = env.do(t, http.MethodPost, base, map[string]any{
		"contado": map[string]string{"efectivo": "0", "tarjeta": "0", "transferencia": "0"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// 5. Late arrival shows up as additional
	tarde := model.Pago{ID: uuid.New(), VanID: van, Fecha: fecha.Add(5 * time.Hour), Metodo: "cash", Monto: money("10")}
	require.NoError(t, env.db.Create(&tarde).Error)

	resp = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &vista)
	assert.Equal(t, "cerrado_con_pendientes", vista.Estado)
	require.NotNil(t, vista.Adicional)
	assert.Equal(t, "10.00", vista.Adicional.Efectivo.StringFixed(2))
	assert.Equal(t, "50.00", vista.Esperado.Efectivo.StringFixed(2))

	// 6. Stored closeout
	resp = env.do(t, http.MethodGet, "/v1/cierres/"+cierre.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stored dto.CierreResponse
	decodeJSON(t, resp, &stored)
	assert.Equal(t, cierre.ID, stored.ID)
	assert.Len(t, stored.PagoIDs, 2)

	// 7. Re-tag is a no-op on a complete closeout
	resp = env.do(t, http.MethodPost, "/v1/cierres/"+cierre.ID+"/reetiquetar", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var retag dto.ReetiquetarResponse
	decodeJSON(t, resp, &retag)
	assert.Zero(t, retag.VentasEtiquetadas)
	assert.Zero(t, retag.PagosEtiquetados)
}

func TestE2E_RetagReachesRowMovedOutOfDay(t *testing.T) {
	env := setupTestEnv(t)
	van := uuid.New()
	fecha := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	venta := model.Venta{ID: uuid.New(), VanID: van, Fecha: fecha,
		Total: decimal.RequireFromString("40"), TotalPagado: decimal.RequireFromString("40"), PagoEfectivo: money("40")}
	abono := model.Pago{ID: uuid.New(), VanID: van, Fecha: fecha.Add(time.Hour), Metodo: "zelle", Monto: money("10")}
	require.NoError(t, env.db.Create(&venta).Error)
	require.NoError(t, env.db.Create(&abono).Error)

	resp := env.do(t, http.MethodPost, "/v1/vans/"+van.String()+"/cierres/2026-03-14", map[string]any{
		"contado": map[string]string{"efectivo": "40", "tarjeta": "0", "transferencia": "10"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var cierre dto.CierreResponse
	decodeJSON(t, resp, &cierre)

	// Undo the payment tag and move the row to the next day, as if the
	// commit stopped after the sales step and the row was edited meanwhile.
	require.NoError(t, env.db.Model(&model.Pago{}).Where("id = ?", abono.ID).
		Updates(map[string]any{"cierre_id": nil, "fecha": fecha.Add(24 * time.Hour)}).Error)

	resp = env.do(t, http.MethodPost, "/v1/cierres/"+cierre.ID+"/reetiquetar", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var retag dto.ReetiquetarResponse
	decodeJSON(t, resp, &retag)
	assert.Equal(t, int64(1), retag.PagosEtiquetados)

	var got model.Pago
	require.NoError(t, env.db.First(&got, "id = ?", abono.ID).Error)
	require.NotNil(t, got.CierreID)
	assert.Equal(t, cierre.ID, got.CierreID.String())

	resp = env.do(t, http.MethodGet, "/v1/vans/"+van.String()+"/cierres/2026-03-15", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var siguiente dto.VistaCierreResponse
	decodeJSON(t, resp, &siguiente)
	assert.Empty(t, siguiente.Pendientes.Movimientos)
}

func TestE2E_Health(t *testing.T) {
	env := setupTestEnv(t)
	resp, err := env.server.Client().Get(env.server.URL + "/health")
	require.NoError(t, err)
	var body map[string]any
	decodeJSON(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "connected", body["db"])
}
