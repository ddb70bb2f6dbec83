package app

import (
	"context"
	"fmt"
	"log/slog"

	appctx "github.com/jsamuelsen/request-scope-service/internal/app/context"
	"github.com/jsamuelsen/request-scope-service/internal/domain"
	"github.com/jsamuelsen/request-scope-service/internal/platform/logging"
)

// OrderService numbers orders within the unit of work that places them.
// It holds no counter of its own; every call reads the counter bound by the
// Dispatcher, so two units of work never share numbering.
type OrderService struct {
	logger *slog.Logger
}

// OrderServiceConfig contains configuration for the order service.
type OrderServiceConfig struct {
	Logger *slog.Logger
}

// NewOrderService creates an order service.
func NewOrderService(cfg OrderServiceConfig) *OrderService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OrderService{logger: logger.With(slog.String("component", "app.OrderService"))}
}

// ProcessOrder places one order and assigns it the next number of the unit.
func (s *OrderService) ProcessOrder(ctx context.Context, customer string) (domain.Order, error) {
	if err := domain.ValidateCustomerName(customer); err != nil {
		return domain.Order{}, fmt.Errorf("validating order: %w", err)
	}

	number, err := appctx.NextValue(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("numbering order: %w", err)
	}

	order := domain.Order{Number: number, Customer: customer}

	logging.FromContext(ctx).InfoContext(ctx, "order processed",
		slog.Int64("order_number", order.Number),
		slog.String("customer", order.Customer),
	)

	return order, nil
}

// ProcessBatch places one order per customer, in order. All names are
// validated before any number is assigned.
func (s *OrderService) ProcessBatch(ctx context.Context, customers []string) ([]domain.Order, error) {
	if len(customers) == 0 {
		return nil, fmt.Errorf("validating batch: %w",
			domain.NewValidationError("customers", "must contain at least one customer"))
	}

	for _, customer := range customers {
		if err := domain.ValidateCustomerName(customer); err != nil {
			return nil, fmt.Errorf("validating batch: %w", err)
		}
	}

	orders := make([]domain.Order, 0, len(customers))

	for _, customer := range customers {
		order, err := s.ProcessOrder(ctx, customer)
		if err != nil {
			return nil, err
		}

		orders = append(orders, order)
	}

	return orders, nil
}

// LastOrderNumber returns the number of the last order placed in this unit of
// work, or 0 when none was placed.
func (s *OrderService) LastOrderNumber(ctx context.Context) (int64, error) {
	n, err := appctx.CurrentValue(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading order counter: %w", err)
	}

	return n, nil
}
