package remotestore

import (
	"context"

	"github.com/fiado/backend/internal/domain/credit"
)

// Store exposes the remote data store as a credit.Store. The remote API has no
// multi-request transactions, so Atomic is a plain call and Transactional is false;
// callers compensate on failure.
type Store struct {
	client *Client
}

// NewStore creates a new Store
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// Repositories returns repositories backed by the client
func (s *Store) Repositories() credit.Repositories {
	return credit.Repositories{
		Clients:      &ClientRepository{client: s.client},
		Sales:        &SaleRepository{client: s.client},
		Installments: &InstallmentRepository{client: s.client},
		Payments:     &PaymentRecordRepository{client: s.client},
	}
}

// Atomic runs fn once against the shared repositories
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repos credit.Repositories) error) error {
	return fn(ctx, s.Repositories())
}

// Transactional reports false: writes made before a failure stay applied
func (s *Store) Transactional() bool {
	return false
}

var _ credit.Store = (*Store)(nil)
