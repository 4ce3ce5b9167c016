package handler

import (
	"context"

	creditapp "github.com/fiado/backend/internal/application/credit"
	"github.com/fiado/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SaleRecorder records sales and their installment schedules
type SaleRecorder interface {
	CreateSale(ctx context.Context, in creditapp.CreateSaleInput) (*creditapp.SaleResponse, error)
	GetSale(ctx context.Context, id uuid.UUID) (*creditapp.SaleResponse, error)
}

// SaleHandler handles sale endpoints
type SaleHandler struct {
	BaseHandler
	sales SaleRecorder
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales SaleRecorder) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// Create godoc
// @ID           createCreditSale
// @Summary      Record a sale
// @Description  A credit sale needs a client and a schedule, given as explicit installments or as a count with a first due date
// @Tags         credit-sales
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateSaleRequest true "Sale"
// @Success      201 {object} dto.Response{data=creditapp.SaleResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /credit/sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	in, err := toCreateSaleInput(req)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	sale, err := h.sales.CreateSale(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, sale)
}

// Get godoc
// @ID           getCreditSale
// @Summary      Get a sale with its schedule
// @Tags         credit-sales
// @Produce      json
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=creditapp.SaleResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /credit/sales/{id} [get]
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sale)
}

func toCreateSaleInput(req dto.CreateSaleRequest) (creditapp.CreateSaleInput, error) {
	clientID, err := parseOptionalUUID(req.ClientID)
	if err != nil {
		return creditapp.CreateSaleInput{}, err
	}
	firstDue, err := dto.ParseDate(req.FirstDueDate)
	if err != nil {
		return creditapp.CreateSaleInput{}, err
	}

	lines := make([]creditapp.ScheduleLineInput, 0, len(req.Installments))
	for _, line := range req.Installments {
		due, err := dto.ParseDate(line.DueDate)
		if err != nil {
			return creditapp.CreateSaleInput{}, err
		}
		lines = append(lines, creditapp.ScheduleLineInput{DueDate: due, Amount: line.Amount})
	}

	return creditapp.CreateSaleInput{
		ClientID:         clientID,
		Total:            req.Total,
		PaymentMethod:    req.PaymentMethod,
		Lines:            lines,
		InstallmentCount: req.InstallmentCount,
		FirstDueDate:     firstDue,
		IntervalMonths:   req.IntervalMonths,
	}, nil
}
