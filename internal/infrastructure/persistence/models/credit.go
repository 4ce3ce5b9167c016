package models

import (
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientModel is the persistence model for credit clients
type ClientModel struct {
	BaseModel
	Name     string `gorm:"type:varchar(200);not null;index"`
	Phone    string `gorm:"type:varchar(50)"`
	Email    string `gorm:"type:varchar(200)"`
	Document string `gorm:"type:varchar(50);index"`
	Address  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *credit.Client {
	return &credit.Client{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Phone:      m.Phone,
		Email:      m.Email,
		Document:   m.Document,
		Address:    m.Address,
	}
}

// FromDomain populates the persistence model from a domain Client
func (m *ClientModel) FromDomain(c *credit.Client) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
	m.Phone = c.Phone
	m.Email = c.Email
	m.Document = c.Document
	m.Address = c.Address
}

// ClientModelFromDomain creates a new persistence model from a domain Client
func ClientModelFromDomain(c *credit.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}

// SaleModel is the persistence model for sales
type SaleModel struct {
	AggregateModel
	ClientID      *uuid.UUID      `gorm:"type:uuid;index"`
	Total         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaymentMethod string          `gorm:"type:varchar(20);not null"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'pending'"`
	SettledAt     *time.Time
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale
func (m *SaleModel) ToDomain() *credit.Sale {
	return &credit.Sale{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ClientID:          m.ClientID,
		Total:             m.Total,
		PaymentMethod:     credit.PaymentMethod(m.PaymentMethod),
		PaymentStatus:     credit.PaymentStatus(m.PaymentStatus),
		SettledAt:         m.SettledAt,
	}
}

// FromDomain populates the persistence model from a domain Sale
func (m *SaleModel) FromDomain(s *credit.Sale) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.ClientID = s.ClientID
	m.Total = s.Total
	m.PaymentMethod = string(s.PaymentMethod)
	m.PaymentStatus = string(s.PaymentStatus)
	m.SettledAt = s.SettledAt
}

// SaleModelFromDomain creates a new persistence model from a domain Sale
func SaleModelFromDomain(s *credit.Sale) *SaleModel {
	m := &SaleModel{}
	m.FromDomain(s)
	return m
}

// InstallmentModel is the persistence model for installments
type InstallmentModel struct {
	AggregateModel
	SaleID     uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_installment_sale_number"`
	Number     int             `gorm:"not null;uniqueIndex:idx_installment_sale_number"`
	DueDate    time.Time       `gorm:"type:date;not null;index"`
	FaceAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountPaid decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status     string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaidAt     *time.Time
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment
func (m *InstallmentModel) ToDomain() *credit.Installment {
	return &credit.Installment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		SaleID:            m.SaleID,
		Number:            m.Number,
		DueDate:           m.DueDate,
		FaceAmount:        m.FaceAmount,
		AmountPaid:        m.AmountPaid,
		Status:            credit.InstallmentStatus(m.Status),
		PaidAt:            m.PaidAt,
	}
}

// FromDomain populates the persistence model from a domain Installment
func (m *InstallmentModel) FromDomain(i *credit.Installment) {
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.SaleID = i.SaleID
	m.Number = i.Number
	m.DueDate = i.DueDate
	m.FaceAmount = i.FaceAmount
	m.AmountPaid = i.AmountPaid
	m.Status = string(i.Status)
	m.PaidAt = i.PaidAt
}

// InstallmentModelFromDomain creates a new persistence model from a domain Installment
func InstallmentModelFromDomain(i *credit.Installment) *InstallmentModel {
	m := &InstallmentModel{}
	m.FromDomain(i)
	return m
}

// PaymentRecordModel is the persistence model for the payment ledger.
// Rows are insert-only.
type PaymentRecordModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReceiptNo     string          `gorm:"type:varchar(32);not null;index"`
	SaleID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	InstallmentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Method        string          `gorm:"type:varchar(20);not null"`
	Reference     string          `gorm:"type:varchar(255)"`
	Kind          string          `gorm:"type:varchar(20);not null;default:'payment'"`
	CreatedAt     time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (PaymentRecordModel) TableName() string {
	return "payment_records"
}

// ToDomain converts the persistence model to a domain PaymentRecord
func (m *PaymentRecordModel) ToDomain() *credit.PaymentRecord {
	return &credit.PaymentRecord{
		ID:            m.ID,
		ReceiptNo:     m.ReceiptNo,
		SaleID:        m.SaleID,
		InstallmentID: m.InstallmentID,
		ClientID:      m.ClientID,
		UserID:        m.UserID,
		Amount:        m.Amount,
		Method:        credit.PaymentMethod(m.Method),
		Reference:     m.Reference,
		Kind:          credit.PaymentRecordKind(m.Kind),
		CreatedAt:     m.CreatedAt,
	}
}

// PaymentRecordModelFromDomain creates a new persistence model from a domain PaymentRecord
func PaymentRecordModelFromDomain(r *credit.PaymentRecord) *PaymentRecordModel {
	return &PaymentRecordModel{
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

// CreditModels returns every model of the credit store, in dependency order
func CreditModels() []any {
	return []any{
		&ClientModel{},
		&SaleModel{},
		&InstallmentModel{},
		&PaymentRecordModel{},
	}
}
