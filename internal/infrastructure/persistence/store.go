package persistence

import (
	"context"
	"fmt"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStore is the relational credit store. Atomic runs inside a database transaction.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Repositories returns repositories bound to the root connection
func (s *GormStore) Repositories() credit.Repositories {
	return repositoriesFor(s.db)
}

// Atomic runs fn inside a transaction; any error rolls back every write.
func (s *GormStore) Atomic(ctx context.Context, fn func(ctx context.Context, repos credit.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, repositoriesFor(tx))
	})
}

// Transactional always reports true for a relational store
func (s *GormStore) Transactional() bool {
	return true
}

func repositoriesFor(db *gorm.DB) credit.Repositories {
	return credit.Repositories{
		Clients:      NewGormClientRepository(db),
		Sales:        NewGormSaleRepository(db),
		Installments: NewGormInstallmentRepository(db),
		Payments:     NewGormPaymentRecordRepository(db),
	}
}

// AutoMigrate creates the credit tables from the GORM models. Production schemas
// come from the SQL migrations; this is for sqlite and tests.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.CreditModels()...); err != nil {
		return fmt.Errorf("failed to migrate credit models: %w", err)
	}
	return nil
}

var _ credit.Store = (*GormStore)(nil)
