package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/request-scope-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/request-scope-service/internal/app"
)

// OrderHandler handles order endpoints. Every request is already its own
// unit of work, so order numbers restart at 1 per request.
type OrderHandler struct {
	orders *app.OrderService
	jobs   *app.OrderJobs
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders *app.OrderService, jobs *app.OrderJobs) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		jobs:   jobs,
	}
}

// ProcessOrder handles POST /api/v1/orders/process?customerName=X
//
// @Summary Place one order
// @Tags orders
// @Produce json
// @Param customerName query string true "Customer name"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/orders/process [post]
func (h *OrderHandler) ProcessOrder(c *gin.Context) {
	var req dto.ProcessOrderRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
		return
	}

	order, err := h.orders.ProcessOrder(c.Request.Context(), req.CustomerName)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOrderResponse(order))
}

// ProcessBatch handles POST /api/v1/orders/batch?customers=A,B,C
//
// @Summary Place a batch of orders in one unit of work
// @Tags orders
// @Produce json
// @Param customers query []string true "Customer names" collectionFormat(csv)
// @Success 200 {object} dto.BatchOrdersResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/orders/batch [post]
func (h *OrderHandler) ProcessBatch(c *gin.Context) {
	var req dto.BatchOrdersRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
		return
	}

	ctx := c.Request.Context()

	orders, err := h.orders.ProcessBatch(ctx, req.CustomerNames())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	last, err := h.orders.LastOrderNumber(ctx)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewBatchOrdersResponse(orders, last))
}

// RunJobs handles POST /api/v1/orders/jobs
// Each batch in the body runs as a separate unit of work on the worker pool.
//
// @Summary Run order batches as background jobs
// @Tags orders
// @Accept json
// @Produce json
// @Param request body dto.OrderJobsRequest true "Batches"
// @Success 200 {object} dto.OrderJobsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/orders/jobs [post]
func (h *OrderHandler) RunJobs(c *gin.Context) {
	var req dto.OrderJobsRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		if dto.IsValidationError(err) {
			dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
			return
		}

		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.ErrorCodeBadRequest,
			"request body must be JSON with a batches array",
		).WithTraceID(dto.GetTraceID(c)))

		return
	}

	results, err := h.jobs.RunBatches(c.Request.Context(), req.Batches)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderJobsResponse(results))
}

func toOrderJobsResponse(results []app.BatchResult) dto.OrderJobsResponse {
	resp := dto.OrderJobsResponse{Results: make([]dto.BatchResultResponse, len(results))}
	for i, r := range results {
		resp.Results[i] = dto.BatchResultResponse{
			Orders:          dto.OrderLines(r.Orders),
			LastOrderNumber: r.LastOrderNumber,
		}
	}

	return resp
}

// RegisterOrderRoutes registers order routes on the given router group.
func (h *OrderHandler) RegisterOrderRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.POST("/process", h.ProcessOrder)
	orders.POST("/batch", h.ProcessBatch)
	orders.POST("/jobs", h.RunJobs)
}
