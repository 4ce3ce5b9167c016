package router

import (
	"github.com/fiado/backend/internal/interfaces/http/handler"
)

// CreditHandlers are the handlers behind /api/v1/credit
type CreditHandlers struct {
	Payments     *handler.PaymentHandler
	Clients      *handler.ClientHandler
	Sales        *handler.SaleHandler
	Installments *handler.InstallmentHandler
}

// NewCreditRoutes builds the credit route group
func NewCreditRoutes(h CreditHandlers) *DomainGroup {
	credit := NewDomainGroup("credit", "/credit")

	credit.Group("payments", "/payments").
		POST("", h.Payments.RegisterPayment).
		POST("/direct", h.Payments.RegisterDirectPayment)

	credit.Group("clients", "/clients").
		POST("", h.Clients.Create).
		GET("", h.Clients.List).
		GET("/:id", h.Clients.Get).
		GET("/:id/debt", h.Clients.Debt).
		GET("/:id/payments", h.Clients.Payments)

	credit.Group("sales", "/sales").
		POST("", h.Sales.Create).
		GET("/:id", h.Sales.Get)

	// static segments before :id
	credit.Group("installments", "/installments").
		GET("", h.Installments.List).
		GET("/stats", h.Installments.Stats).
		GET("/export", h.Installments.Export).
		POST("/:id/settle", h.Installments.Settle)

	return credit
}
