package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository implements credit.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale by its ID
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Sale, error) {
	var model models.SaleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCreditSalesByClient returns the client's installment sales, oldest first
func (r *GormSaleRepository) FindCreditSalesByClient(ctx context.Context, clientID uuid.UUID) ([]credit.Sale, error) {
	var saleModels []models.SaleModel
	if err := r.db.WithContext(ctx).
		Where("client_id = ? AND payment_method = ?", clientID, string(credit.PaymentMethodInstallments)).
		Order("created_at ASC").
		Find(&saleModels).Error; err != nil {
		return nil, err
	}

	sales := make([]credit.Sale, len(saleModels))
	for i := range saleModels {
		sales[i] = *saleModels[i].ToDomain()
	}
	return sales, nil
}

// Create inserts a new sale
func (r *GormSaleRepository) Create(ctx context.Context, sale *credit.Sale) error {
	return r.db.WithContext(ctx).Create(models.SaleModelFromDomain(sale)).Error
}

// MarkPaid moves a pending sale to paid; a sale that is already paid is left alone.
func (r *GormSaleRepository) MarkPaid(ctx context.Context, id uuid.UUID, settledAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SaleModel{}).
		Where("id = ? AND payment_status = ?", id, string(credit.PaymentStatusPending)).
		Updates(map[string]any{
			"payment_status": string(credit.PaymentStatusPaid),
			"settled_at":     settledAt,
			"updated_at":     time.Now(),
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

var _ credit.SaleRepository = (*GormSaleRepository)(nil)
