package repository

import (
	"context"
	"errors"
	"time"

	"tools4care/internal/cierre"
	"tools4care/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type CierreRepository interface {
	// FindByVanDia returns (nil, nil) when the day has no closeout.
	FindByVanDia(ctx context.Context, vanID uuid.UUID, dia string) (*model.CierreVan, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.CierreVan, error)
	CreateCierre(ctx context.Context, c *model.CierreVan) error
	TagVentas(ctx context.Context, e cierre.Etiqueta) (cierre.Etiquetado, error)
	TagPagos(ctx context.Context, e cierre.Etiqueta) (cierre.Etiquetado, error)
	// ListDesde returns closeouts created since desde, oldest first.
	ListDesde(ctx context.Context, desde time.Time, limit int) ([]model.CierreVan, error)
	// ListEtiquetadoPendiente returns closeouts created since desde whose
	// consumed rows are not all tagged yet.
	ListEtiquetadoPendiente(ctx context.Context, desde time.Time, limit int) ([]model.CierreVan, error)
}

var _ cierre.Escritor = (CierreRepository)(nil)

type cierreRepo struct{ db *gorm.DB }

func NewCierreRepository(db *gorm.DB) CierreRepository { return &cierreRepo{db: db} }

func (r *cierreRepo) FindByVanDia(ctx context.Context, vanID uuid.UUID, dia string) (*model.CierreVan, error) {
	var c model.CierreVan
	err := r.db.WithContext(ctx).Where("van_id = ? AND dia = ?", vanID, dia).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cierreRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CierreVan, error) {
	var c model.CierreVan
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return &c, err
}

// CreateCierre inserts the snapshot. The unique index on (van_id, dia) turns a
// concurrent second confirm into cierre.ErrYaCerrado.
func (r *cierreRepo) CreateCierre(ctx context.Context, c *model.CierreVan) error {
	err := r.db.WithContext(ctx).Create(c).Error
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return cierre.ErrYaCerrado
	}
	return err
}

func (r *cierreRepo) TagVentas(ctx context.Context, e cierre.Etiqueta) (cierre.Etiquetado, error) {
	return r.tag(ctx, &model.Venta{}, e)
}

func (r *cierreRepo) TagPagos(ctx context.Context, e cierre.Etiqueta) (cierre.Etiquetado, error) {
	return r.tag(ctx, &model.Pago{}, e)
}

// tag is scoped by id only. The follow-up count catches rows the update
// could not reach.
func (r *cierreRepo) tag(ctx context.Context, m any, e cierre.Etiqueta) (cierre.Etiquetado, error) {
	var out cierre.Etiquetado
	if len(e.IDs) == 0 {
		return out, nil
	}
	db := r.db.WithContext(ctx)
	res := db.Model(m).Where("id IN ? AND cierre_id IS NULL", e.IDs).Update("cierre_id", e.CierreID)
	if res.Error != nil {
		return out, res.Error
	}
	out.Aplicadas = res.RowsAffected
	err := db.Model(m).Where("id IN ? AND cierre_id IS NULL", e.IDs).Count(&out.Pendientes).Error
	return out, err
}

func (r *cierreRepo) ListDesde(ctx context.Context, desde time.Time, limit int) ([]model.CierreVan, error) {
	var cierres []model.CierreVan
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", desde).
		Order("created_at ASC").
		Limit(limit).
		Find(&cierres).Error
	return cierres, err
}

func (r *cierreRepo) ListEtiquetadoPendiente(ctx context.Context, desde time.Time, limit int) ([]model.CierreVan, error) {
	var cierres []model.CierreVan
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", desde).
		Where(`(EXISTS (SELECT 1 FROM ventas v WHERE v.cierre_id IS NULL
			AND v.id::text IN (SELECT jsonb_array_elements_text(cierres_van.venta_ids)))
			OR EXISTS (SELECT 1 FROM pagos p WHERE p.cierre_id IS NULL
			AND p.id::text IN (SELECT jsonb_array_elements_text(cierres_van.pago_ids))))`).
		Order("created_at ASC").
		Limit(limit).
		Find(&cierres).Error
	return cierres, err
}
