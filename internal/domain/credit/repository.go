package credit

import (
	"context"
	"time"

	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InstallmentFilter defines filtering options for installment queries
type InstallmentFilter struct {
	shared.Filter
	ClientID  *uuid.UUID
	SaleID    *uuid.UUID
	Status    *InstallmentStatus
	DueBefore *time.Time // due_date < DueBefore
	DueFrom   *time.Time // due_date >= DueFrom
}

// ClientRepository defines the interface for client persistence
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Client, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, client *Client) error
}

// SaleRepository defines the interface for sale persistence
type SaleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindCreditSalesByClient returns the client's sales made with the installments method
	FindCreditSalesByClient(ctx context.Context, clientID uuid.UUID) ([]Sale, error)

	Create(ctx context.Context, sale *Sale) error

	// MarkPaid moves a pending sale to paid. It never touches a paid sale and
	// reports whether a row changed.
	MarkPaid(ctx context.Context, id uuid.UUID, settledAt time.Time) (bool, error)
}

// InstallmentRepository defines the interface for installment persistence
type InstallmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Installment, error)

	// FindBySale returns every installment of a sale ordered by due date
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]Installment, error)

	// FindUnpaidBySales returns the installments of the given sales whose status is not paid,
	// ordered by due date ascending
	FindUnpaidBySales(ctx context.Context, saleIDs []uuid.UUID) ([]Installment, error)

	FindAll(ctx context.Context, filter InstallmentFilter) ([]Installment, error)

	// CreateBatch stores the schedule of a new credit sale
	CreateBatch(ctx context.Context, installments []Installment) error

	// ApplyPayment writes entry.NewAmountPaid and entry.NewStatus only if the stored
	// installment still has entry.PreviousAmountPaid and entry.ExpectedVersion.
	// It returns shared.ErrConcurrencyConflict when the condition fails.
	ApplyPayment(ctx context.Context, entry PlanEntry) error

	// RevertPayment undoes ApplyPayment for the same entry under the symmetric condition.
	RevertPayment(ctx context.Context, entry PlanEntry) error
}

// PaymentRecordRepository defines the interface for the append-only payment ledger
type PaymentRecordRepository interface {
	Append(ctx context.Context, record *PaymentRecord) error
	FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) ([]PaymentRecord, error)
	FindByInstallment(ctx context.Context, installmentID uuid.UUID) ([]PaymentRecord, error)
}

// Repositories bundles the repositories bound to one store handle
type Repositories struct {
	Clients      ClientRepository
	Sales        SaleRepository
	Installments InstallmentRepository
	Payments     PaymentRecordRepository
}

// Store is the data store behind the credit subsystem
type Store interface {
	// Repositories returns repositories outside any transaction
	Repositories() Repositories

	// Atomic runs fn with repositories bound to a single unit of work. On a
	// transactional store an error from fn discards every write made through them.
	Atomic(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	// Transactional reports whether Atomic actually provides all-or-nothing semantics
	Transactional() bool
}
