package repository

import (
	"context"
	"time"

	"tools4care/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovimientoRepository reads the sales and payments of a van. Open reads
// return untagged rows whose business timestamp falls in [inicio, fin);
// closed reads return rows tagged with a closeout id.
type MovimientoRepository interface {
	ListVentasAbiertas(ctx context.Context, vanID uuid.UUID, inicio, fin time.Time) ([]model.Venta, error)
	ListPagosAbiertos(ctx context.Context, vanID uuid.UUID, inicio, fin time.Time) ([]model.Pago, error)
	ListVentasCerradas(ctx context.Context, cierreID uuid.UUID) ([]model.Venta, error)
	ListPagosCerrados(ctx context.Context, cierreID uuid.UUID) ([]model.Pago, error)
}

type movimientoRepo struct{ db *gorm.DB }

func NewMovimientoRepository(db *gorm.DB) MovimientoRepository { return &movimientoRepo{db: db} }

func (r *movimientoRepo) ListVentasAbiertas(ctx context.Context, vanID uuid.UUID, inicio, fin time.Time) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).
		Where("van_id = ? AND fecha >= ? AND fecha < ? AND cierre_id IS NULL", vanID, inicio, fin).
		Order("fecha ASC, id ASC").
		Find(&ventas).Error
	return ventas, err
}

func (r *movimientoRepo) ListPagosAbiertos(ctx context.Context, vanID uuid.UUID, inicio, fin time.Time) ([]model.Pago, error) {
	var pagos []model.Pago
	err := r.db.WithContext(ctx).
		Where("van_id = ? AND fecha >= ? AND fecha < ? AND cierre_id IS NULL", vanID, inicio, fin).
		Order("fecha ASC, id ASC").
		Find(&pagos).Error
	return pagos, err
}

func (r *movimientoRepo) ListVentasCerradas(ctx context.Context, cierreID uuid.UUID) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).Where("cierre_id = ?", cierreID).Order("fecha ASC, id ASC").Find(&ventas).Error
	return ventas, err
}

func (r *movimientoRepo) ListPagosCerrados(ctx context.Context, cierreID uuid.UUID) ([]model.Pago, error) {
	var pagos []model.Pago
	err := r.db.WithContext(ctx).Where("cierre_id = ?", cierreID).Order("fecha ASC, id ASC").Find(&pagos).Error
	return pagos, err
}
