package service

import (
	"context"

	"github.com/google/uuid"
)

// ColaReetiquetado hands a partially committed closeout to the background
// re-tag worker.
//
//go:generate mockgen -destination=mocks/mock_cola.go -source=cola.go ColaReetiquetado
type ColaReetiquetado interface {
	EncolarReetiquetado(ctx context.Context, cierreID uuid.UUID) error
}
