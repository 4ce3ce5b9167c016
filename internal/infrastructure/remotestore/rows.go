package remotestore

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collection names on the remote store
const (
	collectionClients      = "clients"
	collectionSales        = "sales"
	collectionInstallments = "installments"
	collectionPayments     = "payment_records"
)

const dateLayout = "2006-01-02"

// Date is a calendar date column. PostgREST renders date columns as "2006-01-02".
type Date struct {
	time.Time
}

// MarshalJSON renders the date portion only
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON accepts plain dates and RFC 3339 timestamps
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

type clientRow struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Document  string    `json:"document,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func clientRowFromDomain(c *credit.Client) clientRow {
	return clientRow{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Document:  c.Document,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (r clientRow) toDomain() credit.Client {
	return credit.Client{
		BaseEntity: shared.BaseEntity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
		Name:       r.Name,
		Phone:      r.Phone,
		Email:      r.Email,
		Document:   r.Document,
		Address:    r.Address,
	}
}

type saleRow struct {
	ID            uuid.UUID       `json:"id"`
	ClientID      *uuid.UUID      `json:"client_id"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	SettledAt     *time.Time      `json:"settled_at"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func saleRowFromDomain(s *credit.Sale) saleRow {
	return saleRow{
		ID:            s.ID,
		ClientID:      s.ClientID,
		Total:         s.Total,
		PaymentMethod: string(s.PaymentMethod),
		PaymentStatus: string(s.PaymentStatus),
		SettledAt:     s.SettledAt,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (r saleRow) toDomain() credit.Sale {
	return credit.Sale{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
			Version:    versionOrOne(r.Version),
		},
		ClientID:      r.ClientID,
		Total:         r.Total,
		PaymentMethod: credit.PaymentMethod(r.PaymentMethod),
		PaymentStatus: credit.PaymentStatus(r.PaymentStatus),
		SettledAt:     r.SettledAt,
	}
}

type installmentRow struct {
	ID         uuid.UUID       `json:"id"`
	SaleID     uuid.UUID       `json:"sale_id"`
	Number     int             `json:"number"`
	DueDate    Date            `json:"due_date"`
	FaceAmount decimal.Decimal `json:"face_amount"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Status     string          `json:"status"`
	PaidAt     *time.Time      `json:"paid_at"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func installmentRowFromDomain(i *credit.Installment) installmentRow {
	return installmentRow{
		ID:         i.ID,
		SaleID:     i.SaleID,
		Number:     i.Number,
		DueDate:    Date{i.DueDate},
		FaceAmount: i.FaceAmount,
		AmountPaid: i.AmountPaid,
		Status:     string(i.Status),
		PaidAt:     i.PaidAt,
		Version:    i.Version,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}

func (r installmentRow) toDomain() credit.Installment {
	return credit.Installment{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt},
			Version:    versionOrOne(r.Version),
		},
		SaleID:     r.SaleID,
		Number:     r.Number,
		DueDate:    r.DueDate.Time,
		FaceAmount: r.FaceAmount,
		AmountPaid: r.AmountPaid,
		Status:     credit.InstallmentStatus(r.Status),
		PaidAt:     r.PaidAt,
	}
}

type paymentRecordRow struct {
	ID            uuid.UUID       `json:"id"`
	ReceiptNo     string          `json:"receipt_no"`
	SaleID        uuid.UUID       `json:"sale_id"`
	InstallmentID uuid.UUID       `json:"installment_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Reference     string          `json:"reference"`
	Kind          string          `json:"kind"`
	CreatedAt     time.Time       `json:"created_at"`
}

func paymentRecordRowFromDomain(r *credit.PaymentRecord) paymentRecordRow {
	return paymentRecordRow{
		ID:            r.ID,
		ReceiptNo:     r.ReceiptNo,
		SaleID:        r.SaleID,
		InstallmentID: r.InstallmentID,
		ClientID:      r.ClientID,
		UserID:        r.UserID,
		Amount:        r.Amount,
		Method:        string(r.Method),
		Reference:     r.Reference,
		Kind:          string(r.Kind),
		CreatedAt:     r.CreatedAt,
	}
}

func (r paymentRecordRow) toDomain() credit.PaymentRecord {
	return credit.PaymentRecord{
		ID:            r.ID,
		ReceiptNo:     r.ReceiptNo,
		SaleID:        r.SaleID,
		InstallmentID: r.InstallmentID,
		ClientID:      r.ClientID,
		UserID:        r.UserID,
		Amount:        r.Amount,
		Method:        credit.PaymentMethod(r.Method),
		Reference:     r.Reference,
		Kind:          credit.PaymentRecordKind(r.Kind),
		CreatedAt:     r.CreatedAt,
	}
}

// versionOrOne treats rows written before the version column existed as version 1
func versionOrOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
