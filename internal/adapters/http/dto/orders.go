package dto

import (
	"fmt"
	"strings"

	"github.com/jsamuelsen/request-scope-service/internal/domain"
)

// ProcessOrderRequest is the query of POST /api/v1/orders/process.
type ProcessOrderRequest struct {
	CustomerName string `form:"customerName" json:"customerName" validate:"required,notempty"`
}

// BatchOrdersRequest is the query of POST /api/v1/orders/batch.
// Customers may be repeated or given as one comma separated list.
type BatchOrdersRequest struct {
	Customers []string `form:"customers" json:"customers" validate:"required,min=1"`
}

// CustomerNames flattens comma separated entries into individual names.
func (r BatchOrdersRequest) CustomerNames() []string {
	names := make([]string, 0, len(r.Customers))
	for _, entry := range r.Customers {
		names = append(names, strings.Split(entry, ",")...)
	}

	return names
}

// Validate rejects blank names inside the list.
func (r BatchOrdersRequest) Validate() error {
	for _, name := range r.CustomerNames() {
		if err := domain.ValidateCustomerName(name); err != nil {
			return domain.NewValidationErrorWithValue("customers", "must not contain blank names", name)
		}
	}

	return nil
}

// OrderJobsRequest is the body of POST /api/v1/orders/jobs.
// Each batch runs as its own unit of work.
type OrderJobsRequest struct {
	Batches [][]string `json:"batches" validate:"required,min=1,max=64,dive,min=1"`
}

// Validate rejects blank names in any batch.
func (r OrderJobsRequest) Validate() error {
	for i, batch := range r.Batches {
		for _, name := range batch {
			if err := domain.ValidateCustomerName(name); err != nil {
				return domain.NewValidationErrorWithValue("batches",
					fmt.Sprintf("batch %d must not contain blank names", i), name)
			}
		}
	}

	return nil
}

// OrderResponse is the response of POST /api/v1/orders/process.
type OrderResponse struct {
	Order       string `json:"order"`
	OrderNumber int64  `json:"orderNumber"`
}

// BatchOrdersResponse is the response of POST /api/v1/orders/batch.
type BatchOrdersResponse struct {
	Orders          []string `json:"orders"`
	Summary         string   `json:"summary"`
	LastOrderNumber int64    `json:"lastOrderNumber"`
}

// BatchResultResponse is the outcome of one batch in an OrderJobsResponse.
type BatchResultResponse struct {
	Orders          []string `json:"orders"`
	LastOrderNumber int64    `json:"lastOrderNumber"`
}

// OrderJobsResponse is the response of POST /api/v1/orders/jobs.
type OrderJobsResponse struct {
	Results []BatchResultResponse `json:"results"`
}

// NewOrderResponse converts a domain Order.
func NewOrderResponse(o domain.Order) OrderResponse {
	return OrderResponse{Order: o.String(), OrderNumber: o.Number}
}

// NewBatchOrdersResponse converts a processed batch.
func NewBatchOrdersResponse(orders []domain.Order, last int64) BatchOrdersResponse {
	return BatchOrdersResponse{
		Orders:          OrderLines(orders),
		Summary:         domain.JoinOrders(orders),
		LastOrderNumber: last,
	}
}

// OrderLines renders each order as its confirmation line.
func OrderLines(orders []domain.Order) []string {
	lines := make([]string, len(orders))
	for i, o := range orders {
		lines[i] = o.String()
	}

	return lines
}
