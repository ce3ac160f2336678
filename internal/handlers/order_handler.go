package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/IvoireMarket/shop-api/internal/audit"
	domain "github.com/IvoireMarket/shop-api/internal/domain/order"
	"github.com/IvoireMarket/shop-api/internal/events"
	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/httpresp"
	"github.com/IvoireMarket/shop-api/internal/middleware"
	"github.com/IvoireMarket/shop-api/internal/models"
	"github.com/IvoireMarket/shop-api/internal/token"
	"github.com/IvoireMarket/shop-api/internal/usecase/checkout"
)

// ======================================================
// HANDLER
// ======================================================

type OrderHandler struct {
	db       *gorm.DB
	createUC *checkout.CreateOrder
	codec    *token.Codec
	audit    *audit.Dispatcher
	events   events.Producer
}

func NewOrderHandler(
	db *gorm.DB,
	createUC *checkout.CreateOrder,
	codec *token.Codec,
	auditDispatcher *audit.Dispatcher,
	producer events.Producer,
) *OrderHandler {
	return &OrderHandler{
		db:       db,
		createUC: createUC,
		codec:    codec,
		audit:    auditDispatcher,
		events:   producer,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CartItemRequest struct {
	ProductID uint    `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	Price     float64 `json:"price" binding:"required,min=0"`
}

type CreateOrderRequest struct {
	FormData struct {
		Email     string `json:"email" binding:"required,email"`
		FirstName string `json:"firstName" binding:"required"`
		LastName  string `json:"lastName" binding:"required"`
		Phone     string `json:"phone" binding:"required"`
		Location  string `json:"location"`
	} `json:"formData" binding:"required"`
	CartItems []CartItemRequest `json:"cartItems" binding:"required,min=1"`
	Total     float64           `json:"total" binding:"required,gt=0"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ======================================================
// CREATE (guest checkout)
// ======================================================

func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Formulaire ou panier invalide.")
		return
	}

	in := checkout.CreateOrderInput{
		AuthUserID: h.optionalUserID(c),
		Email:      req.FormData.Email,
		FirstName:  req.FormData.FirstName,
		LastName:   req.FormData.LastName,
		Phone:      req.FormData.Phone,
		Location:   req.FormData.Location,
		Total:      req.Total,
	}
	for _, item := range req.CartItems {
		in.CartItems = append(in.CartItems, checkout.CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	ord, err := h.createUC.Execute(c.Request.Context(), in)
	if err != nil {
		if be, ok := httperr.AsBusiness(err); ok {
			h.writeBusinessError(c, be)
			return
		}
		httperr.Internal(c, "failed_to_create_order", "Impossible d'enregistrer la commande.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"orderId": ord.ID,
		"userId":  ord.UserID,
	})
}

// ======================================================
// LIST / GET
// ======================================================

func (h *OrderHandler) List(c *gin.Context) {
	var orders []models.Order
	if err := h.db.
		Preload("User").
		Preload("Details").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		httperr.Internal(c, "failed_to_list_orders", "Erreur lors du chargement des commandes.")
		return
	}
	httpresp.List(c, orders)
}

// OrderItemView enriches a detail line with product display fields.
type OrderItemView struct {
	models.OrderDetail
	ProductName        string `json:"product_name"`
	ProductDescription string `json:"product_description"`
	ProductImage       string `json:"product_image"`
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var ord models.Order
	if err := h.db.
		Preload("User").
		Preload("Details").
		First(&ord, "orders.id = ?", id).Error; err != nil {

		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "order_not_found", "Commande introuvable.")
			return
		}
		httperr.Internal(c, "failed_to_get_order", "Erreur interne.")
		return
	}

	items := make([]OrderItemView, 0, len(ord.Details))
	for _, d := range ord.Details {
		view := OrderItemView{OrderDetail: d}

		var product models.Product
		if err := h.db.Preload("Images").First(&product, d.ProductID).Error; err == nil {
			view.ProductName = product.Name
			view.ProductDescription = product.Description
			if len(product.Images) > 0 {
				view.ProductImage = product.Images[0].ImageURL
			}
		}
		items = append(items, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"order": ord,
		"items": items,
	})
}

// ======================================================
// STATUS (admin)
// ======================================================

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	adminID := c.MustGet(middleware.ContextUserID).(uint)
	id := c.Param("id")

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Statut manquant.")
		return
	}

	var ord models.Order
	if err := h.db.First(&ord, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "order_not_found", "Commande introuvable.")
			return
		}
		httperr.Internal(c, "failed_to_get_order", "Erreur interne.")
		return
	}

	from := domain.Status(ord.Status)
	to := domain.Status(req.Status)
	if err := domain.CanTransition(from, to); err != nil {
		be, _ := httperr.AsBusiness(err)
		httperr.BadRequest(c, be.Code, "Transition de statut non autorisée.")
		return
	}

	ord.Status = string(to)
	if err := h.db.Save(&ord).Error; err != nil {
		httperr.Internal(c, "failed_to_update_order", "Impossible de mettre à jour la commande.")
		return
	}

	h.audit.Dispatch(audit.Event{
		UserID:   &adminID,
		Action:   "order_status_changed",
		Entity:   "order",
		EntityID: &ord.ID,
		Metadata: map[string]string{"from": string(from), "to": string(to)},
	})
	h.events.Publish(events.Event{
		Type:     events.OrderStatusChanged,
		Entity:   "order",
		EntityID: ord.ID,
		Payload:  map[string]any{"from": string(from), "to": string(to)},
	})

	c.JSON(http.StatusOK, ord)
}

// ======================================================
// DELETE (owner)
// ======================================================

func (h *OrderHandler) Delete(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	id := c.Param("id")

	var ord models.Order
	if err := h.db.First(&ord, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "order_not_found", "Commande introuvable.")
			return
		}
		httperr.Internal(c, "failed_to_get_order", "Erreur interne.")
		return
	}

	if ord.UserID != userID {
		httperr.Forbidden(c, "not_order_owner", "Cette commande ne vous appartient pas.")
		return
	}

	var deliveryCount int64
	if err := h.db.Model(&models.Delivery{}).
		Where("order_id = ?", ord.ID).
		Count(&deliveryCount).Error; err != nil {
		httperr.Internal(c, "failed_to_delete_order", "Erreur interne.")
		return
	}
	if deliveryCount > 0 {
		httperr.BadRequest(c, "order_has_delivery", "Impossible de supprimer : une livraison est en cours pour cette commande.")
		return
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", ord.ID).
			Delete(&models.OrderDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ord).Error
	}); err != nil {
		httperr.Internal(c, "failed_to_delete_order", "Impossible de supprimer la commande.")
		return
	}

	h.audit.Dispatch(audit.Event{
		UserID:   &userID,
		Action:   "order_deleted",
		Entity:   "order",
		EntityID: &ord.ID,
	})

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ======================================================
// HELPERS
// ======================================================

// optionalUserID decodes the session when one is present. Checkout stays
// open to anonymous callers.
func (h *OrderHandler) optionalUserID(c *gin.Context) uint {
	var raw string
	if ah := c.GetHeader("Authorization"); len(ah) > 7 && ah[:7] == "Bearer " {
		raw = ah[7:]
	} else if v, err := c.Cookie(middleware.SessionCookie); err == nil {
		raw = v
	}
	if raw == "" {
		return 0
	}
	claims, err := h.codec.Verify(raw)
	if err != nil {
		return 0
	}
	return claims.UserID
}

func (h *OrderHandler) writeBusinessError(c *gin.Context, be httperr.BusinessError) {
	switch be.Code {
	case "email_exists":
		role := ""
		if be.Meta != nil {
			role, _ = be.Meta["role"].(string)
		}
		c.JSON(http.StatusConflict, gin.H{
			"error_code": be.Code,
			"message":    "Un compte existe déjà avec cet e-mail. Connectez-vous pour commander.",
			"role":       role,
		})
	case "product_not_found":
		httperr.BadRequest(c, be.Code, "Un produit du panier n'existe plus.")
	default:
		httperr.BadRequest(c, be.Code, "Commande invalide.")
	}
}
