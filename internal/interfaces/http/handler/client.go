package handler

import (
	"context"

	creditapp "github.com/fiado/backend/internal/application/credit"
	"github.com/fiado/backend/internal/domain/shared"
	"github.com/fiado/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClientDirectory manages credit clients and reports their debt
type ClientDirectory interface {
	Create(ctx context.Context, in creditapp.CreateClientInput) (*creditapp.ClientResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*creditapp.ClientResponse, error)
	List(ctx context.Context, in creditapp.ListClientsInput) (*shared.Paginated[creditapp.ClientResponse], error)
	Debt(ctx context.Context, clientID uuid.UUID) (*creditapp.DebtResponse, error)
	Payments(ctx context.Context, clientID uuid.UUID, page, pageSize int) ([]creditapp.PaymentRecordResponse, error)
}

// ClientHandler handles credit client endpoints
type ClientHandler struct {
	BaseHandler
	clients ClientDirectory
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clients ClientDirectory) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// Create godoc
// @ID           createCreditClient
// @Summary      Create a client
// @Tags         credit-clients
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateClientRequest true "Client"
// @Success      201 {object} dto.Response{data=creditapp.ClientResponse}
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /credit/clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var req dto.CreateClientRequest
	if !h.bindJSON(c, &req) {
		return
	}

	client, err := h.clients.Create(c.Request.Context(), creditapp.CreateClientInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Document: req.Document,
		Address:  req.Address,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, client)
}

// List godoc
// @ID           listCreditClients
// @Summary      List clients
// @Tags         credit-clients
// @Produce      json
// @Param        search    query string false "Name, document or phone"
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Param        order_by  query string false "Sort field"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} dto.Response{data=[]creditapp.ClientResponse}
// @Security     BearerAuth
// @Router       /credit/clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if !h.bindQuery(c, &req) {
		return
	}

	result, err := h.clients.List(c.Request.Context(), creditapp.ListClientsInput{
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get godoc
// @ID           getCreditClient
// @Summary      Get a client
// @Tags         credit-clients
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Success      200 {object} dto.Response{data=creditapp.ClientResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /credit/clients/{id} [get]
func (h *ClientHandler) Get(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	client, err := h.clients.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// Debt godoc
// @ID           getCreditClientDebt
// @Summary      Get a client's outstanding debt
// @Description  Totals and every unpaid installment in maturity order
// @Tags         credit-clients
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Success      200 {object} dto.Response{data=creditapp.DebtResponse}
// @Failure      404 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /credit/clients/{id}/debt [get]
func (h *ClientHandler) Debt(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	debt, err := h.clients.Debt(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, debt)
}

// Payments godoc
// @ID           listCreditClientPayments
// @Summary      List a client's payment ledger
// @Tags         credit-clients
// @Produce      json
// @Param        id        path  string true  "Client ID" format(uuid)
// @Param        page      query int    false "Page number" default(1)
// @Param        page_size query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]creditapp.PaymentRecordResponse}
// @Security     BearerAuth
// @Router       /credit/clients/{id}/payments [get]
func (h *ClientHandler) Payments(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	req := dto.DefaultListRequest()
	if !h.bindQuery(c, &req) {
		return
	}

	records, err := h.clients.Payments(c.Request.Context(), id, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, records)
}
