package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/IvoireMarket/shop-api/internal/audit"
	domdelivery "github.com/IvoireMarket/shop-api/internal/domain/delivery"
	domorder "github.com/IvoireMarket/shop-api/internal/domain/order"
	"github.com/IvoireMarket/shop-api/internal/events"
	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/httpresp"
	"github.com/IvoireMarket/shop-api/internal/middleware"
	"github.com/IvoireMarket/shop-api/internal/models"
)

// ======================================================
// HANDLER
// ======================================================

type DeliveryHandler struct {
	db     *gorm.DB
	audit  *audit.Dispatcher
	events events.Producer
}

func NewDeliveryHandler(db *gorm.DB, auditDispatcher *audit.Dispatcher, producer events.Producer) *DeliveryHandler {
	return &DeliveryHandler{db: db, audit: auditDispatcher, events: producer}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateDeliveryRequest struct {
	OrderID          uint     `json:"order_id" binding:"required"`
	DeliveryPersonID uint     `json:"delivery_person_id" binding:"required"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
}

type RecordPositionRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

type UpdateDeliveryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ======================================================
// CREATE
// ======================================================

func (h *DeliveryHandler) Create(c *gin.Context) {
	var req CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Données invalides.")
		return
	}

	if err := h.db.First(&models.Order{}, req.OrderID).Error; err != nil {
		httperr.BadRequest(c, "order_not_found", "La commande indiquée n'existe pas.")
		return
	}

	var courier models.User
	if err := h.db.First(&courier, req.DeliveryPersonID).Error; err != nil || courier.Role != models.RoleDelivery {
		httperr.BadRequest(c, "delivery_person_not_found", "Le livreur indiqué n'existe pas.")
		return
	}

	delivery := models.Delivery{
		OrderID:          req.OrderID,
		DeliveryPersonID: req.DeliveryPersonID,
		Status:           string(domdelivery.InitialStatus()),
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if req.Latitude != nil && req.Longitude != nil {
			delivery.Latitude = *req.Latitude
			delivery.Longitude = *req.Longitude
			delivery.Positions = []models.DeliveryPosition{{
				Latitude:   *req.Latitude,
				Longitude:  *req.Longitude,
				RecordedAt: time.Now(),
			}}
		}
		return tx.Create(&delivery).Error
	}); err != nil {
		httperr.Internal(c, "failed_to_create_delivery", "Impossible de créer la livraison.")
		return
	}

	httpresp.Created(c, delivery)
}

// ======================================================
// LIST / GET
// ======================================================

func (h *DeliveryHandler) List(c *gin.Context) {
	var deliveries []models.Delivery
	if err := h.db.
		Preload("Order").
		Preload("DeliveryPerson").
		Order("created_at DESC").
		Find(&deliveries).Error; err != nil {
		httperr.Internal(c, "failed_to_list_deliveries", "Erreur lors du chargement des livraisons.")
		return
	}
	httpresp.List(c, deliveries)
}

func (h *DeliveryHandler) Get(c *gin.Context) {
	delivery, ok := h.findDelivery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, delivery)
}

// ======================================================
// STATUS
// ======================================================

// UpdateStatus is open to admins and to the courier assigned to the
// delivery. A delivered delivery marks its order delivered in the same
// transaction.
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	role := c.GetString(middleware.ContextUserRole)

	delivery, ok := h.findDelivery(c)
	if !ok {
		return
	}

	if role != models.RoleAdmin && delivery.DeliveryPersonID != userID {
		httperr.Forbidden(c, "not_assigned", "Cette livraison ne vous est pas assignée.")
		return
	}

	var req UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Statut manquant.")
		return
	}

	from := domdelivery.Status(delivery.Status)
	to := domdelivery.Status(req.Status)
	if err := domdelivery.CanTransition(from, to); err != nil {
		be, _ := httperr.AsBusiness(err)
		httperr.BadRequest(c, be.Code, "Transition de statut non autorisée.")
		return
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		delivery.Status = string(to)
		if err := tx.Save(delivery).Error; err != nil {
			return err
		}
		if to == domdelivery.StatusDelivered {
			return tx.Model(&models.Order{}).
				Where("id = ?", delivery.OrderID).
				Update("status", string(domorder.StatusDelivered)).Error
		}
		return nil
	}); err != nil {
		httperr.Internal(c, "failed_to_update_delivery", "Impossible de mettre à jour la livraison.")
		return
	}

	h.audit.Dispatch(audit.Event{
		UserID:   &userID,
		Action:   "delivery_status_changed",
		Entity:   "delivery",
		EntityID: &delivery.ID,
		Metadata: map[string]string{"from": string(from), "to": string(to)},
	})
	h.events.Publish(events.Event{
		Type:     events.DeliveryStatusChanged,
		Entity:   "delivery",
		EntityID: delivery.ID,
		Payload:  map[string]any{"from": string(from), "to": string(to)},
	})

	c.JSON(http.StatusOK, delivery)
}

// ======================================================
// POSITIONS
// ======================================================

func (h *DeliveryHandler) RecordPosition(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)
	role := c.GetString(middleware.ContextUserRole)

	delivery, ok := h.findDelivery(c)
	if !ok {
		return
	}

	if role != models.RoleAdmin && delivery.DeliveryPersonID != userID {
		httperr.Forbidden(c, "not_assigned", "Cette livraison ne vous est pas assignée.")
		return
	}

	if err := domdelivery.CanRecordPosition(domdelivery.Status(delivery.Status)); err != nil {
		be, _ := httperr.AsBusiness(err)
		httperr.BadRequest(c, be.Code, "La livraison est terminée.")
		return
	}

	var req RecordPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Coordonnées manquantes.")
		return
	}

	position := models.DeliveryPosition{
		DeliveryID: delivery.ID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		RecordedAt: time.Now(),
	}

	// Append and denormalize atomically: the delivery row always mirrors
	// its newest position.
	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&position).Error; err != nil {
			return err
		}
		return tx.Model(delivery).Updates(map[string]any{
			"latitude":  req.Latitude,
			"longitude": req.Longitude,
		}).Error
	}); err != nil {
		httperr.Internal(c, "failed_to_record_position", "Impossible d'enregistrer la position.")
		return
	}

	h.events.Publish(events.Event{
		Type:     events.DeliveryPosition,
		Entity:   "delivery",
		EntityID: delivery.ID,
		Payload:  map[string]any{"latitude": req.Latitude, "longitude": req.Longitude},
	})

	httpresp.Created(c, position)
}

// PositionView annotates a history row with the current delivery and order
// statuses.
type PositionView struct {
	models.DeliveryPosition
	DeliveryStatus string `json:"delivery_status"`
	OrderStatus    string `json:"order_status"`
}

func (h *DeliveryHandler) History(c *gin.Context) {
	delivery, ok := h.findDelivery(c)
	if !ok {
		return
	}

	var ord models.Order
	if err := h.db.First(&ord, delivery.OrderID).Error; err != nil {
		httperr.Internal(c, "failed_to_get_order", "Erreur interne.")
		return
	}

	var positions []models.DeliveryPosition
	if err := h.db.
		Where("delivery_id = ?", delivery.ID).
		Order("recorded_at DESC").
		Find(&positions).Error; err != nil {
		httperr.Internal(c, "failed_to_list_positions", "Erreur lors du chargement des positions.")
		return
	}

	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, PositionView{
			DeliveryPosition: p,
			DeliveryStatus:   delivery.Status,
			OrderStatus:      ord.Status,
		})
	}

	httpresp.List(c, views)
}

// ======================================================
// HELPERS
// ======================================================

func (h *DeliveryHandler) findDelivery(c *gin.Context) (*models.Delivery, bool) {
	id := c.Param("id")

	var delivery models.Delivery
	if err := h.db.First(&delivery, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "delivery_not_found", "Livraison introuvable.")
		} else {
			httperr.Internal(c, "failed_to_get_delivery", "Erreur interne.")
		}
		return nil, false
	}
	return &delivery, true
}
