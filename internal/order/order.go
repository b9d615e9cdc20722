package order

import (
	"context"
	"time"

	orderdm "github.com/altayar/tourism-backend/internal/core/datamodel/order"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*orderdm.Order, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
}
