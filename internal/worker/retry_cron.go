package worker

// retry_cron.go
// Periodically looks for recent closeouts whose consumed rows are still
// untagged and re-drives them. Covers jobs that were never enqueued or were
// dead-lettered.

import (
	"context"
	"time"

	"tools4care/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	defaultRetryTick   = 30 * time.Second
	defaultRetryWindow = 7 * 24 * time.Hour
	retryBatchSize     = 20
)

type RetryCronConfig struct {
	Cierres  repository.CierreRepository
	Svc      Reetiquetador
	Interval time.Duration
	// Ventana bounds how far back closeouts are scanned.
	Ventana time.Duration
}

// StartRetryCron ticks every cfg.Interval until ctx is cancelled.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultRetryTick
	}
	if cfg.Ventana <= 0 {
		cfg.Ventana = defaultRetryWindow
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg, time.Now())
			}
		}
	}()
}

// processRetries returns how many closeouts were fully re-tagged.
func processRetries(ctx context.Context, cfg RetryCronConfig, now time.Time) int {
	cierres, err := cfg.Cierres.ListEtiquetadoPendiente(ctx, now.Add(-cfg.Ventana), retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending closeouts")
		return 0
	}
	if len(cierres) == 0 {
		return 0
	}

	log.Info().Int("count", len(cierres)).Msg("retry_cron: re-tagging closeouts")

	ok := 0
	for i := range cierres {
		if ctx.Err() != nil {
			return ok
		}
		c := &cierres[i]
		resp, err := cfg.Svc.Reetiquetar(ctx, c.ID)
		if err != nil {
			log.Warn().Err(err).Str("cierre_id", c.ID.String()).Msg("retry_cron: re-tag failed, next tick retries")
			continue
		}
		ok++
		log.Info().
			Str("cierre_id", c.ID.String()).
			Int64("ventas", resp.VentasEtiquetadas).
			Int64("pagos", resp.PagosEtiquetados).
			Msg("retry_cron: closeout tagged")
	}
	return ok
}
