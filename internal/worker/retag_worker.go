package worker

// retag_worker.go
// Finishes closeouts whose commit stopped after the snapshot insert. Tagging
// is idempotent, so a job may run any number of times.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tools4care/internal/dto"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxReetiquetadoIntentos = 4

// retryBase is the first backoff step; later steps double it.
var retryBase = time.Second

type ReetiquetadoPayload struct {
	CierreID string `json:"cierre_id"`
}

// Reetiquetador re-drives the tagging of one closeout.
type Reetiquetador interface {
	Reetiquetar(ctx context.Context, id uuid.UUID) (*dto.ReetiquetarResponse, error)
}

// ErrPermanente marks failures a retry cannot fix.
var ErrPermanente = errors.New("permanent failure")

type RetagWorker struct {
	svc       Reetiquetador
	permanent func(error) bool
}

// NewRetagWorker wires the worker. permanent reports errors that must not be
// retried (e.g. the closeout does not exist); nil retries everything.
func NewRetagWorker(svc Reetiquetador, permanent func(error) bool) *RetagWorker {
	if permanent == nil {
		permanent = func(error) bool { return false }
	}
	return &RetagWorker{svc: svc, permanent: permanent}
}

func (w *RetagWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReetiquetadoPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("retag_worker: invalid payload")
		return fmt.Errorf("%w: %v", ErrPermanente, err)
	}
	cierreID, err := uuid.Parse(payload.CierreID)
	if err != nil {
		log.Error().Str("cierre_id", payload.CierreID).Msg("retag_worker: invalid cierre_id")
		return fmt.Errorf("%w: %v", ErrPermanente, err)
	}

	var resp *dto.ReetiquetarResponse
	intentos, err := withRetry(ctx, maxReetiquetadoIntentos, func(attempt int) error {
		r, err := w.svc.Reetiquetar(ctx, cierreID)
		if err != nil {
			if w.permanent(err) {
				return fmt.Errorf("%w: %v", ErrPermanente, err)
			}
			log.Warn().Err(err).Str("cierre_id", payload.CierreID).Int("attempt", attempt+1).
				Msg("retag_worker: attempt failed")
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("cierre_id", payload.CierreID).Int("attempts", intentos).
			Msg("retag_worker: giving up")
		return &Agotado{Intentos: intentos, Err: err}
	}

	log.Info().
		Str("cierre_id", resp.CierreID).
		Int64("ventas", resp.VentasEtiquetadas).
		Int64("pagos", resp.PagosEtiquetados).
		Msg("retag_worker: closeout tagged")
	return nil
}

// withRetry calls fn up to maxAttempts times with exponential backoff and
// returns how many calls it made. ErrPermanente stops it immediately.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) (int, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := retryBase * time.Duration(1<<uint(i-1))
			select {
			case <-ctx.Done():
				return i, ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			if errors.Is(err, ErrPermanente) {
				return i + 1, err
			}
			continue
		}
		return i + 1, nil
	}
	return maxAttempts, lastErr
}
