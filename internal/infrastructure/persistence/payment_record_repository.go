package persistence

import (
	"context"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRecordRepository implements credit.PaymentRecordRepository using GORM.
// The ledger is append-only: there is no update or delete.
type GormPaymentRecordRepository struct {
	db *gorm.DB
}

// NewGormPaymentRecordRepository creates a new GormPaymentRecordRepository
func NewGormPaymentRecordRepository(db *gorm.DB) *GormPaymentRecordRepository {
	return &GormPaymentRecordRepository{db: db}
}

// Append inserts a ledger record
func (r *GormPaymentRecordRepository) Append(ctx context.Context, record *credit.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(models.PaymentRecordModelFromDomain(record)).Error
}

// FindByClient returns a client's ledger, newest first unless the filter says otherwise
func (r *GormPaymentRecordRepository) FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) ([]credit.PaymentRecord, error) {
	query := r.db.WithContext(ctx).Where("client_id = ?", clientID)
	if receipt, ok := filter.Filters["receipt_no"].(string); ok && receipt != "" {
		query = query.Where("receipt_no = ?", receipt)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	orderBy := ValidateSortField(filter.OrderBy, PaymentRecordSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir)).Order("id ASC")

	var recordModels []models.PaymentRecordModel
	if err := query.Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toPaymentRecords(recordModels), nil
}

// FindByInstallment returns the ledger lines of one installment in insertion order
func (r *GormPaymentRecordRepository) FindByInstallment(ctx context.Context, installmentID uuid.UUID) ([]credit.PaymentRecord, error) {
	var recordModels []models.PaymentRecordModel
	if err := r.db.WithContext(ctx).
		Where("installment_id = ?", installmentID).
		Order("created_at ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toPaymentRecords(recordModels), nil
}

func toPaymentRecords(recordModels []models.PaymentRecordModel) []credit.PaymentRecord {
	records := make([]credit.PaymentRecord, len(recordModels))
	for i := range recordModels {
		records[i] = *recordModels[i].ToDomain()
	}
	return records
}

var _ credit.PaymentRecordRepository = (*GormPaymentRecordRepository)(nil)
