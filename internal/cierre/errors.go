package cierre

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrFetchFailed means a movement source failed. It is never reported as
	// an empty day.
	ErrFetchFailed = errors.New("no se pudieron obtener los movimientos")
	// ErrYaCerrado is returned when (van, día) already has a closeout.
	ErrYaCerrado = errors.New("el día ya está cerrado para esta van")
	// ErrSinMovimientos is returned when confirming a day with no movements.
	ErrSinMovimientos = errors.New("no hay movimientos para cerrar")
	// ErrCommitParcial means the closeout row exists but tagging did not finish.
	ErrCommitParcial = errors.New("cierre guardado con etiquetado incompleto")
	// ErrEtiquetadoIncompleto means a tagging step ran but consumed rows are
	// still untagged.
	ErrEtiquetadoIncompleto = errors.New("movimientos consumidos sin etiquetar")
)

// FetchError identifies which read failed.
type FetchError struct {
	Fuente string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrFetchFailed, e.Fuente, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetchFailed, e.Err} }

// Paso is a commit step after the closeout insert.
type Paso string

const (
	PasoEtiquetarVentas Paso = "etiquetar_ventas"
	PasoEtiquetarPagos  Paso = "etiquetar_pagos"
)

// CommitParcialError carries what a retry needs to converge.
type CommitParcialError struct {
	CierreID uuid.UUID
	Paso     Paso
	Err      error
}

func (e *CommitParcialError) Error() string {
	return fmt.Sprintf("%s: cierre %s, paso %s: %v", ErrCommitParcial, e.CierreID, e.Paso, e.Err)
}

func (e *CommitParcialError) Unwrap() []error { return []error{ErrCommitParcial, e.Err} }
