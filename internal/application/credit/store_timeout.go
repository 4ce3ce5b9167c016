package credit

import (
	"context"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// withTimeout bounds every repository call of repos by d. A non-positive d returns repos unchanged.
func withTimeout(repos credit.Repositories, d time.Duration) credit.Repositories {
	if d <= 0 {
		return repos
	}
	return credit.Repositories{
		Clients:      &timedClients{next: repos.Clients, d: d},
		Sales:        &timedSales{next: repos.Sales, d: d},
		Installments: &timedInstallments{next: repos.Installments, d: d},
		Payments:     &timedPayments{next: repos.Payments, d: d},
	}
}

type timedClients struct {
	next credit.ClientRepository
	d    time.Duration
}

func (r *timedClients) FindByID(ctx context.Context, id uuid.UUID) (*credit.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.FindByID(ctx, id)
}

func (r *timedClients) FindAll(ctx context.Context, filter shared.Filter) ([]credit.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.FindAll(ctx, filter)
}

func (r *timedClients) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.Count(ctx, filter)
}

func (r *timedClients) Save(ctx context.Context, client *credit.Client) error {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.Save(ctx, client)
}

type timedSales struct {
	next credit.SaleRepository
	d    time.Duration
}

func (r *timedSales) FindByID(ctx context.Context, id uuid.UUID) (*credit.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.FindByID(ctx, id)
}

func (r *timedSales) FindCreditSalesByClient(ctx context.Context, clientID uuid.UUID) ([]credit.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.FindCreditSalesByClient(ctx, clientID)
}

func (r *timedSales) Create(ctx context.Context, sale *credit.Sale) error {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.Create(ctx, sale)
}

func (r *timedSales) MarkPaid(ctx context.Context, id uuid.UUID, settledAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.MarkPaid(ctx, id, settledAt)
}

type timedInstallments struct {
	next credit.InstallmentRepository
	d    time.Duration
}

func (r *timedInstallments) FindByID(ctx context.Context, id uuid.UUID) (*credit.Installment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.FindByID(ctx, id)
}

func (r *timedInstallments) FindBySale(ctx context.Context, saleID uuid.UUID) ([]credit.Installment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.FindBySale(ctx, saleID)
}

func (r *timedInstallments) FindUnpaidBySales(ctx context.Context, saleIDs []uuid.UUID) ([]credit.Installment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.FindUnpaidBySales(ctx, saleIDs)
}

func (r *timedInstallments) FindAll(ctx context.Context, filter credit.InstallmentFilter) ([]credit.Installment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.FindAll(ctx, filter)
}

func (r *timedInstallments) CreateBatch(ctx context.Context, installments []credit.Installment) error {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.CreateBatch(ctx, installments)
}

func (r *timedInstallments) ApplyPayment(ctx context.Context, entry credit.PlanEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.ApplyPayment(ctx, entry)
}

func (r *timedInstallments) RevertPayment(ctx context.Context, entry credit.PlanEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.RevertPayment(ctx, entry)
}

type timedPayments struct {
	next credit.PaymentRecordRepository
	d    time.Duration
}

func (r *timedPayments) Append(ctx context.Context, record *credit.PaymentRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.Append(ctx, record)
}

func (r *timedPayments) FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) ([]credit.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.FindByClient(ctx, clientID, filter)
}

func (r *timedPayments) FindByInstallment(ctx context.Context, installmentID uuid.UUID) ([]credit.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.d)
	defer cancel()
	return r.next.FindByInstallment(ctx, installmentID)
}
