package model

import (
	"time"

	"github.com/google/uuid"
)

// Cliente is read-only here: the closeout only needs display names.
type Cliente struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre    string    `gorm:"not null"`
	Negocio   *string
	Telefono  *string
	CreatedAt time.Time
}

func (Cliente) TableName() string { return "clientes" }
