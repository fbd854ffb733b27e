package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tools4care/internal/dto"
	"tools4care/internal/model"
	"tools4care/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoExiste = errors.New("no existe")

type fakeReetiquetador struct {
	fallas int
	err    error
	calls  []uuid.UUID
}

func (f *fakeReetiquetador) Reetiquetar(_ context.Context, id uuid.UUID) (*dto.ReetiquetarResponse, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	if f.fallas > 0 {
		f.fallas--
		return nil, errors.New("deadlock detected")
	}
	return &dto.ReetiquetarResponse{CierreID: id.String(), PagosEtiquetados: 1}, nil
}

func fastRetry(t *testing.T) {
	t.Helper()
	prev := retryBase
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = prev })
}

func payload(t *testing.T, id string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(ReetiquetadoPayload{CierreID: id})
	require.NoError(t, err)
	return b
}

func TestRetagWorker_RetriesUntilSuccess(t *testing.T) {
	fastRetry(t)
	svc := &fakeReetiquetador{fallas: 2}
	w := NewRetagWorker(svc, nil)
	id := uuid.New()

	err := w.Process(context.Background(), payload(t, id.String()))
	require.NoError(t, err)
	assert.Len(t, svc.calls, 3)
}

func TestRetagWorker_ExhaustedReturnsError(t *testing.T) {
	fastRetry(t)
	svc := &fakeReetiquetador{fallas: 10}
	w := NewRetagWorker(svc, nil)

	err := w.Process(context.Background(), payload(t, uuid.NewString()))

	var ag *Agotado
	require.ErrorAs(t, err, &ag)
	assert.Equal(t, maxReetiquetadoIntentos, ag.Intentos)
	assert.Len(t, svc.calls, maxReetiquetadoIntentos)
}

func TestRetagWorker_PermanentErrorStopsImmediately(t *testing.T) {
	fastRetry(t)
	svc := &fakeReetiquetador{err: errNoExiste}
	w := NewRetagWorker(svc, func(err error) bool { return errors.Is(err, errNoExiste) })

	err := w.Process(context.Background(), payload(t, uuid.NewString()))
	assert.ErrorIs(t, err, ErrPermanente)
	assert.Equal(t, 1, intentosDe(err))
	assert.Len(t, svc.calls, 1)
}

func TestRetagWorker_InvalidPayload(t *testing.T) {
	w := NewRetagWorker(&fakeReetiquetador{}, nil)
	assert.ErrorIs(t, w.Process(context.Background(), json.RawMessage(`{"cierre_id":"nope"}`)), ErrPermanente)
	assert.ErrorIs(t, w.Process(context.Background(), json.RawMessage(`[`)), ErrPermanente)
}

func TestEncodeJob(t *testing.T) {
	id := uuid.New()
	raw, err := encodeJob("reetiquetado", ReetiquetadoPayload{CierreID: id.String()})
	require.NoError(t, err)

	var job Job
	require.NoError(t, json.Unmarshal(raw, &job))
	assert.Equal(t, "reetiquetado", job.Type)
	assert.JSONEq(t, `{"cierre_id":"`+id.String()+`"}`, string(job.Payload))
}

// ── DLQ ──────────────────────────────────────────────────────────────────────

func TestNuevaEntrada_AttemptsComeFromTheError(t *testing.T) {
	job := Job{Type: "reetiquetado", Payload: json.RawMessage(`{"cierre_id":"x"}`)}
	at := time.Date(2025, 7, 14, 18, 0, 0, 0, time.FixedZone("EDT", -4*3600))

	agotado := nuevaEntrada(QueueReetiquetado, job, &Agotado{Intentos: 3, Err: errors.New("deadlock")}, at)
	assert.Equal(t, 3, agotado.Attempts)
	assert.Equal(t, "reetiquetado", agotado.JobType)
	assert.Contains(t, agotado.Reason, "deadlock")
	assert.Equal(t, time.UTC, agotado.FailedAt.Location())

	plano := nuevaEntrada(QueueReetiquetado, job, errors.New("invalid envelope"), at)
	assert.Equal(t, 1, plano.Attempts)
}

// ── Retry cron ───────────────────────────────────────────────────────────────

type fakeCierreRepo struct {
	repository.CierreRepository
	pendientes []model.CierreVan
	desde      time.Time
}

func (f *fakeCierreRepo) ListEtiquetadoPendiente(_ context.Context, desde time.Time, _ int) ([]model.CierreVan, error) {
	f.desde = desde
	return f.pendientes, nil
}

func TestProcessRetries(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	repo := &fakeCierreRepo{pendientes: []model.CierreVan{{ID: a}, {ID: b}}}
	svc := &fakeReetiquetador{fallas: 1}
	now := time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)

	n := processRetries(context.Background(), RetryCronConfig{Cierres: repo, Svc: svc, Ventana: 48 * time.Hour}, now)

	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{a, b}, svc.calls)
	assert.Equal(t, now.Add(-48*time.Hour), repo.desde)
}
