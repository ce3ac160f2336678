package checkout

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/IvoireMarket/shop-api/internal/audit"
	domain "github.com/IvoireMarket/shop-api/internal/domain/order"
	"github.com/IvoireMarket/shop-api/internal/events"
	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/mailer"
	"github.com/IvoireMarket/shop-api/internal/models"
	"github.com/IvoireMarket/shop-api/internal/validators"
)

// ======================================================
// INPUT
// ======================================================

type CartLine struct {
	ProductID uint
	Quantity  int
	Price     float64
}

type CreateOrderInput struct {
	// Zero when the caller is anonymous.
	AuthUserID uint

	Email     string
	FirstName string
	LastName  string
	Phone     string
	Location  string

	CartItems []CartLine
	Total     float64
}

// ======================================================
// USE CASE
// ======================================================

type CreateOrder struct {
	repo   domain.Repository
	audit  *audit.Dispatcher
	events events.Producer
	mail   mailer.Mailer
}

func NewCreateOrder(
	repo domain.Repository,
	audit *audit.Dispatcher,
	events events.Producer,
	mail mailer.Mailer,
) *CreateOrder {
	return &CreateOrder{
		repo:   repo,
		audit:  audit,
		events: events,
		mail:   mail,
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateOrder) Execute(
	ctx context.Context,
	in CreateOrderInput,
) (*models.Order, error) {

	if len(in.CartItems) == 0 {
		return nil, httperr.ErrBusiness("empty_cart")
	}
	for _, line := range in.CartItems {
		if line.ProductID == 0 || line.Quantity <= 0 || line.Price < 0 {
			return nil, httperr.ErrBusiness("invalid_cart_item")
		}
	}

	email := validators.NormalizeEmail(in.Email)
	if email == "" {
		return nil, httperr.ErrBusiness("missing_email")
	}

	buyer, err := uc.resolveBuyer(ctx, in, email)
	if err != nil {
		return nil, err
	}

	details := make([]models.OrderDetail, 0, len(in.CartItems))
	for _, line := range in.CartItems {
		details = append(details, models.OrderDetail{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	ord := &models.Order{
		Total:   in.Total,
		Status:  string(domain.InitialStatus()),
		Details: details,
	}

	if err := uc.repo.CreateCheckout(ctx, buyer, ord); err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		UserID:   &buyer.ID,
		Action:   "order_created",
		Entity:   "order",
		EntityID: &ord.ID,
	})

	uc.events.Publish(events.Event{
		Type:     events.OrderCreated,
		Entity:   "order",
		EntityID: ord.ID,
		Payload:  map[string]any{"user_id": buyer.ID, "total": ord.Total},
	})

	// Best-effort: a failed mail never fails the checkout.
	if err := uc.mail.Send(buyer.Email, "Confirmation de commande",
		fmt.Sprintf("Merci ! Votre commande n°%d d'un total de %.0f FCFA a bien été enregistrée.", ord.ID, ord.Total),
	); err != nil {
		log.Printf("order confirmation mail failed: %v", err)
	}

	return ord, nil
}

// resolveBuyer applies the duplicate-email rule and synthesizes a guest
// account when the caller has no usable one.
func (uc *CreateOrder) resolveBuyer(
	ctx context.Context,
	in CreateOrderInput,
	email string,
) (*models.User, error) {

	existing, err := uc.repo.FindUserByEmail(ctx, email)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if existing != nil {
		if existing.Guest || existing.ID == in.AuthUserID {
			return existing, nil
		}
		// A credentialed account owns this email and the caller is not
		// logged in as it: let the client offer a login instead.
		return nil, httperr.ErrBusinessMeta("email_exists", map[string]any{
			"role": existing.Role,
		})
	}

	if in.AuthUserID != 0 {
		return uc.repo.GetUserByID(ctx, in.AuthUserID)
	}

	return &models.User{
		Username:    in.FirstName + " " + in.LastName,
		Email:       email,
		Role:        models.RoleGuest,
		Guest:       true,
		PhoneNumber: validators.NormalizePhone(in.Phone),
		Location:    in.Location,
	}, nil
}
