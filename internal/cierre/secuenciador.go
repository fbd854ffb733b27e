package cierre

import (
	"context"
	"fmt"

	"tools4care/internal/model"

	"github.com/google/uuid"
)

// Etiqueta scopes one tagging step to the snapshot's own rows. Only rows
// with no closeout id are touched. The scope is the id list alone: a consumed
// row edited out of the day or the van after the snapshot is still tagged.
type Etiqueta struct {
	CierreID uuid.UUID
	IDs      []uuid.UUID
}

// Etiquetado reports one tagging step. Pendientes counts ids of the step that
// still have no closeout id after the update.
type Etiquetado struct {
	Aplicadas  int64
	Pendientes int64
}

// Etiquetador sets the closeout id on consumed rows. Both calls are
// idempotent: re-running them after success changes nothing.
type Etiquetador interface {
	TagVentas(ctx context.Context, e Etiqueta) (Etiquetado, error)
	TagPagos(ctx context.Context, e Etiqueta) (Etiquetado, error)
}

// Escritor persists a closeout and tags its rows.
type Escritor interface {
	Etiquetador
	// CreateCierre must return ErrYaCerrado when (van, día) already exists.
	CreateCierre(ctx context.Context, c *model.CierreVan) error
}

// Resumen reports how many rows a tagging pass touched.
type Resumen struct {
	Ventas int64
	Pagos  int64
}

// Commit writes the snapshot, then tags sales, then payments. The insert is
// the commit point: once it succeeds the day is closed, and a later failure
// is reported as *CommitParcialError so Reetiquetar can finish the job.
func Commit(ctx context.Context, w Escritor, c *model.CierreVan) (Resumen, error) {
	if err := w.CreateCierre(ctx, c); err != nil {
		return Resumen{}, err
	}
	return Reetiquetar(ctx, w, c)
}

// Reetiquetar runs both tagging steps for an existing closeout. A step that
// leaves consumed rows untagged without failing is still partial.
func Reetiquetar(ctx context.Context, w Etiquetador, c *model.CierreVan) (Resumen, error) {
	var r Resumen
	ventas, err := c.IDsVentas()
	if err != nil {
		return r, &CommitParcialError{CierreID: c.ID, Paso: PasoEtiquetarVentas, Err: err}
	}
	pagos, err := c.IDsPagos()
	if err != nil {
		return r, &CommitParcialError{CierreID: c.ID, Paso: PasoEtiquetarPagos, Err: err}
	}

	pasos := []struct {
		paso Paso
		ids  []uuid.UUID
		tag  func(context.Context, Etiqueta) (Etiquetado, error)
		dst  *int64
	}{
		{PasoEtiquetarVentas, ventas, w.TagVentas, &r.Ventas},
		{PasoEtiquetarPagos, pagos, w.TagPagos, &r.Pagos},
	}
	for _, p := range pasos {
		if len(p.ids) == 0 {
			continue
		}
		res, err := p.tag(ctx, Etiqueta{CierreID: c.ID, IDs: p.ids})
		*p.dst = res.Aplicadas
		if err != nil {
			return r, &CommitParcialError{CierreID: c.ID, Paso: p.paso, Err: err}
		}
		if res.Pendientes > 0 {
			err := fmt.Errorf("%w: %d de %d", ErrEtiquetadoIncompleto, res.Pendientes, len(p.ids))
			return r, &CommitParcialError{CierreID: c.ID, Paso: p.paso, Err: err}
		}
	}
	return r, nil
}
