package repository

import (
	"context"
	"net/url"
	"strings"
	"time"

	"tools4care/internal/cierre"
	"tools4care/internal/infra"
	"tools4care/internal/model"

	"github.com/google/uuid"
)

const (
	// hostedIDChunk bounds the id=in.(...) list so the query string stays short.
	hostedIDChunk = 100
	// hostedScanFactor widens the local scan so closeouts that are already
	// tagged do not crowd out pending ones.
	hostedScanFactor = 10
)

type idRow struct {
	ID uuid.UUID `json:"id"`
}

// hostedCierreRepo keeps closeout snapshots in the local database while the
// movement rows live on the hosted backend, so tagging goes there too.
type hostedCierreRepo struct {
	CierreRepository
	c *infra.HostedClient
}

// NewHostedCierreRepository wraps the local closeout store so tagging and the
// pending scan run against the hosted backend's ventas and pagos.
func NewHostedCierreRepository(local CierreRepository, c *infra.HostedClient) CierreRepository {
	return &hostedCierreRepo{CierreRepository: local, c: c}
}

func (r *hostedCierreRepo) TagVentas(ctx context.Context, e cierre.Etiqueta) (cierre.Etiquetado, error) {
	return r.tag(ctx, "ventas", e)
}

func (r *hostedCierreRepo) TagPagos(ctx context.Context, e cierre.Etiqueta) (cierre.Etiquetado, error) {
	return r.tag(ctx, "pagos", e)
}

func (r *hostedCierreRepo) tag(ctx context.Context, tabla string, e cierre.Etiqueta) (cierre.Etiquetado, error) {
	var out cierre.Etiquetado
	cambios := map[string]string{"cierre_id": e.CierreID.String()}
	for _, ids := range chunkIDs(e.IDs, hostedIDChunk) {
		rows, err := infra.Update[idRow](ctx, r.c, tabla, filtroSinEtiquetar(ids), cambios)
		if err != nil {
			return out, err
		}
		out.Aplicadas += int64(len(rows))
	}
	n, err := r.sinEtiquetar(ctx, tabla, e.IDs)
	out.Pendientes = n
	return out, err
}

// ListEtiquetadoPendiente scans recent local snapshots and asks the hosted
// backend which of them still have untagged rows.
func (r *hostedCierreRepo) ListEtiquetadoPendiente(ctx context.Context, desde time.Time, limit int) ([]model.CierreVan, error) {
	recientes, err := r.ListDesde(ctx, desde, limit*hostedScanFactor)
	if err != nil {
		return nil, err
	}
	var out []model.CierreVan
	for _, c := range recientes {
		if len(out) == limit {
			break
		}
		pendiente, err := r.pendiente(ctx, &c)
		if err != nil {
			return out, err
		}
		if pendiente {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *hostedCierreRepo) pendiente(ctx context.Context, c *model.CierreVan) (bool, error) {
	ventas, err := c.IDsVentas()
	if err != nil {
		return true, nil
	}
	pagos, err := c.IDsPagos()
	if err != nil {
		return true, nil
	}
	n, err := r.sinEtiquetar(ctx, "ventas", ventas)
	if err != nil || n > 0 {
		return n > 0, err
	}
	n, err = r.sinEtiquetar(ctx, "pagos", pagos)
	return n > 0, err
}

func (r *hostedCierreRepo) sinEtiquetar(ctx context.Context, tabla string, ids []uuid.UUID) (int64, error) {
	var n int64
	for _, chunk := range chunkIDs(ids, hostedIDChunk) {
		q := filtroSinEtiquetar(chunk)
		q.Set("select", "id")
		rows, err := infra.Select[idRow](ctx, r.c, tabla, q)
		if err != nil {
			return n, err
		}
		n += int64(len(rows))
	}
	return n, nil
}

func filtroSinEtiquetar(ids []uuid.UUID) url.Values {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = id.String()
	}
	q := url.Values{}
	q.Set("id", "in.("+strings.Join(s, ",")+")")
	q.Set("cierre_id", "is.null")
	return q
}

func chunkIDs(ids []uuid.UUID, size int) [][]uuid.UUID {
	var out [][]uuid.UUID
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
