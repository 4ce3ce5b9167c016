package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	creditapp "github.com/fiado/backend/internal/application/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InstallmentPortfolio queries, settles and exports installments
type InstallmentPortfolio interface {
	List(ctx context.Context, in creditapp.ListInstallmentsInput) (*shared.Paginated[creditapp.InstallmentResponse], error)
	Stats(ctx context.Context, clientID *uuid.UUID) (*creditapp.StatsResponse, error)
	SettleInstallment(ctx context.Context, in creditapp.SettleInstallmentInput) (*creditapp.PaymentResult, error)
	ExportPortfolio(ctx context.Context, view string, clientID *uuid.UUID) (*creditapp.ExportResult, error)
}

// InstallmentHandler handles installment portfolio endpoints
type InstallmentHandler struct {
	BaseHandler
	installments InstallmentPortfolio
}

// NewInstallmentHandler creates a new InstallmentHandler
func NewInstallmentHandler(installments InstallmentPortfolio) *InstallmentHandler {
	return &InstallmentHandler{installments: installments}
}

// List godoc
// @ID           listCreditInstallments
// @Summary      List installments
// @Description  Installments ordered by due date. An installment due today counts as overdue.
// @Tags         credit-installments
// @Produce      json
// @Param        status    query string false "all, pending, overdue or paid" default(pending)
// @Param        client_id query string false "Client ID" format(uuid)
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]creditapp.InstallmentResponse}
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /credit/installments [get]
func (h *InstallmentHandler) List(c *gin.Context) {
	var req dto.ListInstallmentsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	clientID, err := parseOptionalUUID(req.ClientID)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, "Invalid client_id format")
		return
	}

	result, err := h.installments.List(c.Request.Context(), creditapp.ListInstallmentsInput{
		View:     req.Status,
		ClientID: clientID,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Stats godoc
// @ID           getCreditInstallmentStats
// @Summary      Portfolio totals
// @Tags         credit-installments
// @Produce      json
// @Param        client_id query string false "Client ID" format(uuid)
// @Success      200 {object} dto.Response{data=creditapp.StatsResponse}
// @Security     BearerAuth
// @Router       /credit/installments/stats [get]
func (h *InstallmentHandler) Stats(c *gin.Context) {
	var req dto.PortfolioFilterRequest
	if !h.bindQuery(c, &req) {
		return
	}
	clientID, err := parseOptionalUUID(req.ClientID)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, "Invalid client_id format")
		return
	}

	stats, err := h.installments.Stats(c.Request.Context(), clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// Settle godoc
// @ID           settleCreditInstallment
// @Summary      Settle one installment
// @Description  Pays the installment's full residual
// @Tags         credit-installments
// @Accept       json
// @Produce      json
// @Param        id      path string                       true  "Installment ID" format(uuid)
// @Param        request body dto.SettleInstallmentRequest false "Payment method and reference"
// @Success      200 {object} dto.Response{data=creditapp.PaymentResult}
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /credit/installments/{id}/settle [post]
func (h *InstallmentHandler) Settle(c *gin.Context) {
	userID, ok := h.getCallerID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.SettleInstallmentRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	result, err := h.installments.SettleInstallment(c.Request.Context(), creditapp.SettleInstallmentInput{
		InstallmentID: id,
		Method:        req.Method,
		Reference:     req.Reference,
		UserID:        userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	writePaymentResult(c, result)
}

// Export godoc
// @ID           exportCreditPortfolio
// @Summary      Export the portfolio as a spreadsheet
// @Description  Returns the xlsx file, or a time-limited download link when object storage is configured
// @Tags         credit-installments
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      json
// @Param        status    query string false "all, pending, overdue or paid" default(pending)
// @Param        client_id query string false "Client ID" format(uuid)
// @Success      200 {file} file
// @Failure      501 {object} dto.Response
// @Security     BearerAuth
// @Router       /credit/installments/export [get]
func (h *InstallmentHandler) Export(c *gin.Context) {
	var req dto.PortfolioFilterRequest
	if !h.bindQuery(c, &req) {
		return
	}
	clientID, err := parseOptionalUUID(req.ClientID)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, "Invalid client_id format")
		return
	}

	result, err := h.installments.ExportPortfolio(c.Request.Context(), req.Status, clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.URL != "" {
		h.Success(c, result)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Header("X-Export-Rows", strconv.Itoa(result.Rows))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
