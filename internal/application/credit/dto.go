package credit

import (
	"time"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Channel identifies where a payment was entered
type Channel string

const (
	ChannelGlobal Channel = "global" // POS "abono global" screen
	ChannelDirect Channel = "direct" // server-to-server API
)

// Tag returns the reference suffix written to the ledger for the channel
func (c Channel) Tag() string {
	if c == ChannelDirect {
		return credit.ChannelTagDirect
	}
	return credit.ChannelTagGlobal
}

// Payment result statuses
const (
	PaymentStatusApplied = "applied"
	PaymentStatusNoDebt  = "no_debt"
	PaymentStatusPartial = "partial"
)

// RegisterPaymentInput is a client-level payment to spread over outstanding installments
type RegisterPaymentInput struct {
	ClientID       string
	Amount         decimal.Decimal
	Method         string
	Reference      string
	UserID         uuid.UUID
	Channel        Channel
	IdempotencyKey string
}

// PaymentDetail is the part of a payment applied to one installment
type PaymentDetail struct {
	InstallmentID uuid.UUID       `json:"installment_id"`
	SaleID        uuid.UUID       `json:"sale_id"`
	DueDate       time.Time       `json:"due_date"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	NewAmountPaid decimal.Decimal `json:"new_amount_paid"`
	Status        string          `json:"status"`
}

// PaymentResult is the outcome of a payment registration.
// Complete is false only when Status is partial.
type PaymentResult struct {
	ClientID      uuid.UUID       `json:"client_id"`
	ReceiptNo     string          `json:"receipt_no,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	Remainder     decimal.Decimal `json:"remainder"`
	Detail        []PaymentDetail `json:"detail"`
	SalesSettled  []uuid.UUID     `json:"sales_settled"`
	Complete      bool            `json:"complete"`
	Status        string          `json:"status"`
	Replayed      bool            `json:"replayed,omitempty"`
}

// IsPartial reports whether some writes remained applied after a failed payment
func (r *PaymentResult) IsPartial() bool {
	return r.Status == PaymentStatusPartial
}

// InstallmentResponse is one installment in API responses
type InstallmentResponse struct {
	ID         uuid.UUID       `json:"id"`
	SaleID     uuid.UUID       `json:"sale_id"`
	ClientID   *uuid.UUID      `json:"client_id,omitempty"`
	ClientName string          `json:"client_name,omitempty"`
	Number     int             `json:"number"`
	DueDate    time.Time       `json:"due_date"`
	FaceAmount decimal.Decimal `json:"face_amount"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Residual   decimal.Decimal `json:"residual"`
	Status     string          `json:"status"`
	Overdue    bool            `json:"overdue"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	Version    int             `json:"version"`
}

// DebtResponse is a client's outstanding credit position
type DebtResponse struct {
	ClientID           uuid.UUID             `json:"client_id"`
	TotalOutstanding   decimal.Decimal       `json:"total_outstanding"`
	OverdueOutstanding decimal.Decimal       `json:"overdue_outstanding"`
	OverdueCount       int                   `json:"overdue_count"`
	Installments       []InstallmentResponse `json:"installments"`
}

// ClientResponse is a client in API responses
type ClientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Document  string    `json:"document"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateClientInput holds the fields of a new client
type CreateClientInput struct {
	Name     string
	Phone    string
	Email    string
	Document string
	Address  string
}

// ListClientsInput filters the client registry
type ListClientsInput struct {
	Search   string
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// PaymentRecordResponse is a ledger line in API responses
type PaymentRecordResponse struct {
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

// ScheduleLineInput is one explicit installment of a new credit sale
type ScheduleLineInput struct {
	DueDate time.Time
	Amount  decimal.Decimal
}

// CreateSaleInput records a sale. Credit sales take either explicit Lines or
// InstallmentCount + FirstDueDate (+ IntervalMonths, default 1).
type CreateSaleInput struct {
	ClientID         *uuid.UUID
	Total            decimal.Decimal
	PaymentMethod    string
	Lines            []ScheduleLineInput
	InstallmentCount int
	FirstDueDate     time.Time
	IntervalMonths   int
}

// SaleResponse is a sale with its schedule
type SaleResponse struct {
	ID            uuid.UUID             `json:"id"`
	ClientID      *uuid.UUID            `json:"client_id,omitempty"`
	Total         decimal.Decimal       `json:"total"`
	PaymentMethod string                `json:"payment_method"`
	PaymentStatus string                `json:"payment_status"`
	SettledAt     *time.Time            `json:"settled_at,omitempty"`
	Installments  []InstallmentResponse `json:"installments"`
	CreatedAt     time.Time             `json:"created_at"`
	Version       int                   `json:"version"`
}

// ListInstallmentsInput selects a slice of the installment portfolio
type ListInstallmentsInput struct {
	View     string
	ClientID *uuid.UUID
	Page     int
	PageSize int
}

// StatsResponse summarizes the installment portfolio
type StatsResponse struct {
	ToCollect    decimal.Decimal `json:"to_collect"`
	Overdue      decimal.Decimal `json:"overdue"`
	Recovered    decimal.Decimal `json:"recovered"`
	PendingCount int             `json:"pending_count"`
	OverdueCount int             `json:"overdue_count"`
	PaidCount    int             `json:"paid_count"`
}

// SettleInstallmentInput marks one installment as paid for its full residual
type SettleInstallmentInput struct {
	InstallmentID uuid.UUID
	Method        string
	Reference     string
	UserID        uuid.UUID
}

// PortfolioRow is one installment line of an export
type PortfolioRow struct {
	InstallmentID  uuid.UUID
	SaleID         uuid.UUID
	ClientID       *uuid.UUID
	ClientName     string
	ClientDocument string
	Number         int
	DueDate        time.Time
	FaceAmount     decimal.Decimal
	AmountPaid     decimal.Decimal
	Residual       decimal.Decimal
	Status         string
	PaidAt         *time.Time
}

// ExportResult is a rendered portfolio export. URL is set when the file was
// uploaded to object storage; otherwise Data carries the file.
type ExportResult struct {
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	Rows        int        `json:"rows"`
	URL         string     `json:"url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Data        []byte     `json:"-"`
}

func toInstallmentResponse(inst *credit.Installment, now time.Time) InstallmentResponse {
	return InstallmentResponse{
		ID:         inst.ID,
		SaleID:     inst.SaleID,
		Number:     inst.Number,
		DueDate:    inst.DueDate,
		FaceAmount: inst.FaceAmount,
		AmountPaid: inst.AmountPaid,
		Residual:   inst.Residual(),
		Status:     string(inst.Status),
		Overdue:    inst.IsOverdue(now),
		PaidAt:     inst.PaidAt,
		Version:    inst.Version,
	}
}

func toClientResponse(c *credit.Client) ClientResponse {
	return ClientResponse{
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

func toPaymentRecordResponse(r *credit.PaymentRecord) PaymentRecordResponse {
	return PaymentRecordResponse{
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

func toStatsResponse(s credit.PortfolioStats) StatsResponse {
	return StatsResponse{
		ToCollect:    s.ToCollect,
		Overdue:      s.Overdue,
		Recovered:    s.Recovered,
		PendingCount: s.PendingCount,
		OverdueCount: s.OverdueCount,
		PaidCount:    s.PaidCount,
	}
}

func toPaymentDetail(e credit.PlanEntry) PaymentDetail {
	return PaymentDetail{
		InstallmentID: e.InstallmentID,
		SaleID:        e.SaleID,
		DueDate:       e.DueDate,
		AmountApplied: e.AmountApplied,
		NewAmountPaid: e.NewAmountPaid,
		Status:        string(e.NewStatus),
	}
}
