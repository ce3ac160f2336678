package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/IvoireMarket/shop-api/internal/domain/order"
	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/models"
)

type CheckoutGormRepository struct {
	db *gorm.DB
}

func NewCheckoutGormRepository(db *gorm.DB) *CheckoutGormRepository {
	return &CheckoutGormRepository{db: db}
}

// --------------------------------------------------
// Users
// --------------------------------------------------

func (r *CheckoutGormRepository) FindUserByEmail(
	ctx context.Context,
	email string,
) (*models.User, error) {

	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *CheckoutGormRepository) GetUserByID(
	ctx context.Context,
	id uint,
) (*models.User, error) {

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// --------------------------------------------------
// Checkout
// --------------------------------------------------

func (r *CheckoutGormRepository) CreateCheckout(
	ctx context.Context,
	buyer *models.User,
	order *models.Order,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if buyer.ID == 0 {
			// The guest display name comes off the checkout form and can
			// collide with the unique username index; suffix it rather than
			// failing the sale.
			var taken int64
			if err := tx.Model(&models.User{}).
				Where("username = ?", buyer.Username).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				buyer.Username = fmt.Sprintf("%s-%s", buyer.Username, uuid.NewString()[:8])
			}

			if err := tx.Create(buyer).Error; err != nil {
				return err
			}
		}

		ids := make([]uint, 0, len(order.Details))
		for _, d := range order.Details {
			ids = append(ids, d.ProductID)
		}
		var count int64
		if err := tx.Model(&models.Product{}).
			Where("id IN ?", ids).
			Count(&count).Error; err != nil {
			return err
		}
		if count != int64(len(uniq(ids))) {
			return httperr.ErrBusiness("product_not_found")
		}

		order.UserID = buyer.ID
		return tx.Create(order).Error
	})
}

func uniq(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Compile-time check
var _ domain.Repository = (*CheckoutGormRepository)(nil)
