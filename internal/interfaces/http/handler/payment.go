package handler

import (
	"context"
	"net/http"

	creditapp "github.com/fiado/backend/internal/application/credit"
	"github.com/fiado/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PaymentRegistrar registers client-level payments
type PaymentRegistrar interface {
	RegisterPayment(ctx context.Context, in creditapp.RegisterPaymentInput) (*creditapp.PaymentResult, error)
}

// PaymentHandler handles client payment endpoints
type PaymentHandler struct {
	BaseHandler
	payments PaymentRegistrar
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentRegistrar) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RegisterPayment godoc
// @ID           registerCreditPayment
// @Summary      Register a global payment
// @Description  Spreads a payment over the client's outstanding installments, oldest due date first
// @Tags         credit-payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Retry key; a repeated key replays the first result"
// @Param        request body dto.RegisterPaymentRequest true "Payment"
// @Success      200 {object} dto.Response{data=creditapp.PaymentResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      502 {object} dto.Response{data=creditapp.PaymentResult}
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /credit/payments [post]
func (h *PaymentHandler) RegisterPayment(c *gin.Context) {
	h.register(c, creditapp.ChannelGlobal)
}

// RegisterDirectPayment godoc
// @ID           registerDirectCreditPayment
// @Summary      Register a payment from an integration
// @Description  Same allocation as the global payment, tagged as entered through the API
// @Tags         credit-payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Retry key; a repeated key replays the first result"
// @Param        request body dto.RegisterPaymentRequest true "Payment"
// @Success      200 {object} dto.Response{data=creditapp.PaymentResult}
// @Failure      400 {object} dto.Response
// @Failure      502 {object} dto.Response{data=creditapp.PaymentResult}
// @Security     BearerAuth
// @Router       /credit/payments/direct [post]
func (h *PaymentHandler) RegisterDirectPayment(c *gin.Context) {
	h.register(c, creditapp.ChannelDirect)
}

func (h *PaymentHandler) register(c *gin.Context, channel creditapp.Channel) {
	userID, ok := h.getCallerID(c)
	if !ok {
		return
	}

	var req dto.RegisterPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.payments.RegisterPayment(c.Request.Context(), creditapp.RegisterPaymentInput{
		ClientID:       req.ClientID,
		Amount:         req.Amount,
		Method:         req.Method,
		Reference:      req.Reference,
		UserID:         userID,
		Channel:        channel,
		IdempotencyKey: c.GetHeader(dto.IdempotencyKeyHeader),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	writePaymentResult(c, result)
}

// writePaymentResult sends a payment result. A partial settlement is an error
// response that still carries what was applied.
func writePaymentResult(c *gin.Context, result *creditapp.PaymentResult) {
	if result.IsPartial() {
		c.JSON(http.StatusBadGateway, dto.NewErrorResponseWithData(
			dto.ErrCodePartialSettlement,
			"The payment was only partly applied and could not be rolled back",
			getRequestID(c),
			result,
		))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(result))
}
