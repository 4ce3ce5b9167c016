package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// maturityOrder is the deterministic order used by the allocation engine
const maturityOrder = "installments.due_date ASC, installments.number ASC, installments.created_at ASC, installments.id ASC"

// GormInstallmentRepository implements credit.InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByID finds an installment by its ID
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Installment, error) {
	var model models.InstallmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySale returns every installment of a sale ordered by due date
func (r *GormInstallmentRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]credit.Installment, error) {
	var installmentModels []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order(maturityOrder).
		Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	return toInstallments(installmentModels), nil
}

// FindUnpaidBySales returns the not-yet-paid installments of the given sales
func (r *GormInstallmentRepository) FindUnpaidBySales(ctx context.Context, saleIDs []uuid.UUID) ([]credit.Installment, error) {
	if len(saleIDs) == 0 {
		return []credit.Installment{}, nil
	}
	var installmentModels []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("sale_id IN ? AND status <> ?", lo.Uniq(saleIDs), string(credit.InstallmentStatusPaid)).
		Order(maturityOrder).
		Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	return toInstallments(installmentModels), nil
}

// FindAll finds the installments matching the filter
func (r *GormInstallmentRepository) FindAll(ctx context.Context, filter credit.InstallmentFilter) ([]credit.Installment, error) {
	query := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).Select("installments.*")
	if filter.ClientID != nil {
		query = query.Joins("JOIN sales ON sales.id = installments.sale_id").
			Where("sales.client_id = ?", *filter.ClientID)
	}
	if filter.SaleID != nil {
		query = query.Where("installments.sale_id = ?", *filter.SaleID)
	}
	if filter.Status != nil {
		query = query.Where("installments.status = ?", string(*filter.Status))
	}
	if filter.DueBefore != nil {
		query = query.Where("installments.due_date < ?", *filter.DueBefore)
	}
	if filter.DueFrom != nil {
		query = query.Where("installments.due_date >= ?", *filter.DueFrom)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, InstallmentSortFields, "due_date")
		query = query.Order("installments." + field + " " + ValidateSortOrder(filter.OrderDir))
	}
	query = query.Order(maturityOrder)

	var installmentModels []models.InstallmentModel
	if err := query.Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	return toInstallments(installmentModels), nil
}

// CreateBatch stores the schedule of a new credit sale
func (r *GormInstallmentRepository) CreateBatch(ctx context.Context, installments []credit.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	installmentModels := make([]*models.InstallmentModel, len(installments))
	for i := range installments {
		installmentModels[i] = models.InstallmentModelFromDomain(&installments[i])
	}
	return r.db.WithContext(ctx).CreateInBatches(installmentModels, 100).Error
}

// ApplyPayment writes the entry's new paid amount under a compare-and-set on
// (amount_paid, version). Zero affected rows means another writer got there first.
func (r *GormInstallmentRepository) ApplyPayment(ctx context.Context, entry credit.PlanEntry) error {
	now := time.Now()
	updates := map[string]any{
		"amount_paid": entry.NewAmountPaid,
		"status":      string(entry.NewStatus),
		"updated_at":  now,
		"version":     gorm.Expr("version + 1"),
	}
	if entry.SettlesInstallment() {
		updates["paid_at"] = now
	}

	result := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("id = ? AND version = ? AND amount_paid = ?", entry.InstallmentID, entry.ExpectedVersion, entry.PreviousAmountPaid).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// RevertPayment restores the amounts an ApplyPayment of the same entry replaced.
// It only matches the row state that ApplyPayment left behind.
func (r *GormInstallmentRepository) RevertPayment(ctx context.Context, entry credit.PlanEntry) error {
	updates := map[string]any{
		"amount_paid": entry.PreviousAmountPaid,
		"status":      string(entry.PreviousStatus),
		"updated_at":  time.Now(),
		"version":     gorm.Expr("version + 1"),
	}
	if entry.SettlesInstallment() {
		updates["paid_at"] = nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("id = ? AND version = ? AND amount_paid = ?", entry.InstallmentID, entry.ExpectedVersion+1, entry.NewAmountPaid).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func toInstallments(installmentModels []models.InstallmentModel) []credit.Installment {
	installments := make([]credit.Installment, len(installmentModels))
	for i := range installmentModels {
		installments[i] = *installmentModels[i].ToDomain()
	}
	return installments
}

var _ credit.InstallmentRepository = (*GormInstallmentRepository)(nil)
