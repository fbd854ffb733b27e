package worker

// dlq.go
// Exhausted jobs are parked in dlq:{queue} with the reason and how many
// attempts they got. The retry cron still sweeps closeouts whose rows remain
// untagged, so a dead-lettered re-tag is not lost.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// Agotado is returned by a handler that gave up after Intentos attempts.
type Agotado struct {
	Intentos int
	Err      error
}

func (e *Agotado) Error() string {
	return fmt.Sprintf("agotado tras %d intentos: %v", e.Intentos, e.Err)
}

func (e *Agotado) Unwrap() error { return e.Err }

// intentosDe reads the attempt count carried by err. An error without one
// stopped on its first attempt; a nil error made none.
func intentosDe(err error) int {
	var ag *Agotado
	if errors.As(err, &ag) {
		return ag.Intentos
	}
	if err == nil {
		return 0
	}
	return 1
}

type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

func nuevaEntrada(queue string, job Job, err error, at time.Time) DLQEntry {
	e := DLQEntry{
		OriginalQueue: queue,
		JobType:       job.Type,
		Payload:       job.Payload,
		FailedAt:      at.UTC(),
		Attempts:      intentosDe(err),
	}
	if err != nil {
		e.Reason = err.Error()
	}
	return e
}

// DLQ writes and measures the dead-letter lists.
type DLQ struct {
	rdb *redis.Client
	now func() time.Time
}

func NewDLQ(rdb *redis.Client) *DLQ {
	return &DLQ{rdb: rdb, now: time.Now}
}

// Push parks job. It runs on a context detached from ctx so a shutdown in
// progress does not drop the entry.
func (d *DLQ) Push(ctx context.Context, queue string, job Job, cause error) {
	entry := nuevaEntrada(queue, job, cause, d.now())
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}
	key := DLQPrefix + queue
	if err := d.rdb.LPush(context.WithoutCancel(ctx), key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: push failed")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", entry.JobType).
		Str("reason", entry.Reason).
		Int("attempts", entry.Attempts).
		Msg("dlq: job parked")
}

// Len reports the backlog of queue's DLQ; exposed on the health endpoint.
func (d *DLQ) Len(ctx context.Context, queue string) (int64, error) {
	return d.rdb.LLen(ctx, DLQPrefix+queue).Result()
}
