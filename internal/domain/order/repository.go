package order

import (
	"context"

	"github.com/IvoireMarket/shop-api/internal/models"
)

type Repository interface {
	// -------- User lookup --------
	FindUserByEmail(
		ctx context.Context,
		email string,
	) (*models.User, error)

	GetUserByID(
		ctx context.Context,
		id uint,
	) (*models.User, error)

	// -------- Checkout (single transaction) --------
	// CreateCheckout persists the buyer (when buyer.ID is zero), the order
	// and all its details atomically. buyer.ID is set on the order before
	// insert.
	CreateCheckout(
		ctx context.Context,
		buyer *models.User,
		order *models.Order,
	) error
}
