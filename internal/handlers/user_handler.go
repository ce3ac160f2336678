package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/IvoireMarket/shop-api/internal/audit"
	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/httpresp"
	"github.com/IvoireMarket/shop-api/internal/middleware"
	"github.com/IvoireMarket/shop-api/internal/models"
	"github.com/IvoireMarket/shop-api/internal/validators"
)

type UserHandler struct {
	db    *gorm.DB
	audit *audit.Dispatcher
}

func NewUserHandler(db *gorm.DB, auditDispatcher *audit.Dispatcher) *UserHandler {
	return &UserHandler{db: db, audit: auditDispatcher}
}

// --------- Requests ---------

type CreateUserRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Role        string `json:"role" binding:"required,oneof=admin user delivery"`
	PhoneNumber string `json:"phone_number"`
	Location    string `json:"location"`
}

// UpdateUserRequest enumerates the mutable fields; absent fields are left
// untouched. Client-supplied field names never reach the query builder.
type UpdateUserRequest struct {
	Username        *string `json:"username,omitempty"`
	Email           *string `json:"email,omitempty" binding:"omitempty,email"`
	Password        *string `json:"password,omitempty" binding:"omitempty,min=6"`
	Role            *string `json:"role,omitempty" binding:"omitempty,oneof=admin user delivery"`
	PhoneNumber     *string `json:"phone_number,omitempty"`
	Location        *string `json:"location,omitempty"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

// --------- Handlers (admin) ---------

func (h *UserHandler) List(c *gin.Context) {
	var users []models.User
	if err := h.db.Order("created_at DESC").Find(&users).Error; err != nil {
		httperr.Internal(c, "failed_to_list_users", "Erreur lors du chargement des utilisateurs.")
		return
	}
	httpresp.List(c, users)
}

func (h *UserHandler) Get(c *gin.Context) {
	user, ok := h.findUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Données invalides.")
		return
	}

	email := validators.NormalizeEmail(req.Email)

	var count int64
	h.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		httperr.Conflict(c, "email_exists", "Un compte existe déjà avec cet e-mail.")
		return
	}

	h.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		httperr.Conflict(c, "username_exists", "Ce nom d'utilisateur est déjà pris.")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Erreur interne.")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         req.Role,
		PhoneNumber:  validators.NormalizePhone(req.PhoneNumber),
		Location:     req.Location,
	}

	if err := h.db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			httperr.Conflict(c, "user_exists", "E-mail ou nom d'utilisateur déjà utilisé.")
			return
		}
		httperr.Internal(c, "failed_to_create_user", "Impossible de créer l'utilisateur.")
		return
	}

	httpresp.Created(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	user, ok := h.findUser(c)
	if !ok {
		return
	}
	h.applyPatch(c, user, true)
}

func (h *UserHandler) Delete(c *gin.Context) {
	adminID := c.MustGet(middleware.ContextUserID).(uint)

	user, ok := h.findUser(c)
	if !ok {
		return
	}

	var orderCount int64
	if err := h.db.Model(&models.Order{}).
		Where("user_id = ?", user.ID).
		Count(&orderCount).Error; err != nil {
		httperr.Internal(c, "failed_to_delete_user", "Erreur interne.")
		return
	}
	if orderCount > 0 {
		httperr.BadRequest(c, "user_has_orders", fmt.Sprintf(
			"Impossible de supprimer : ce compte possède %d commande(s).", orderCount,
		))
		return
	}

	var deliveryCount int64
	if err := h.db.Model(&models.Delivery{}).
		Where("delivery_person_id = ?", user.ID).
		Count(&deliveryCount).Error; err != nil {
		httperr.Internal(c, "failed_to_delete_user", "Erreur interne.")
		return
	}
	if deliveryCount > 0 {
		httperr.BadRequest(c, "user_has_deliveries", fmt.Sprintf(
			"Impossible de supprimer : %d livraison(s) sont assignées à ce compte.", deliveryCount,
		))
		return
	}

	if err := h.db.Delete(user).Error; err != nil {
		// RESTRICT FK catches rows created between the pre-checks and here.
		if isForeignKeyViolation(err) {
			httperr.Conflict(c, "user_referenced", "Ce compte est encore référencé par des commandes ou livraisons.")
			return
		}
		httperr.Internal(c, "failed_to_delete_user", "Impossible de supprimer l'utilisateur.")
		return
	}

	h.audit.Dispatch(audit.Event{
		UserID:   &adminID,
		Action:   "user_deleted",
		Entity:   "user",
		EntityID: &user.ID,
	})

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// --------- Self-service ---------

// UpdateSelf resolves the target row from the session claims, never from a
// path parameter.
func (h *UserHandler) UpdateSelf(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httperr.NotFound(c, "user_not_found", "Utilisateur introuvable.")
		return
	}

	h.applyPatch(c, &user, false)
}

// --------- Helpers ---------

func (h *UserHandler) applyPatch(c *gin.Context, user *models.User, allowRole bool) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Données invalides.")
		return
	}

	if req.Username != nil {
		var count int64
		h.db.Model(&models.User{}).
			Where("username = ? AND id <> ?", *req.Username, user.ID).
			Count(&count)
		if count > 0 {
			httperr.Conflict(c, "username_exists", "Ce nom d'utilisateur est déjà pris.")
			return
		}
		user.Username = *req.Username
	}
	if req.Email != nil {
		email := validators.NormalizeEmail(*req.Email)
		var count int64
		h.db.Model(&models.User{}).
			Where("email = ? AND id <> ?", email, user.ID).
			Count(&count)
		if count > 0 {
			httperr.Conflict(c, "email_exists", "Un compte existe déjà avec cet e-mail.")
			return
		}
		user.Email = email
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			httperr.Internal(c, "failed_to_hash_password", "Erreur interne.")
			return
		}
		user.PasswordHash = string(hashed)
	}
	if req.Role != nil && allowRole {
		user.Role = *req.Role
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = validators.NormalizePhone(*req.PhoneNumber)
	}
	if req.Location != nil {
		user.Location = *req.Location
	}
	if req.ProfileImageURL != nil {
		user.ProfileImageURL = *req.ProfileImageURL
	}

	if err := h.db.Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			httperr.Conflict(c, "user_exists", "E-mail ou nom d'utilisateur déjà utilisé.")
			return
		}
		httperr.Internal(c, "failed_to_update_user", "Impossible de mettre à jour l'utilisateur.")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) findUser(c *gin.Context) (*models.User, bool) {
	id := c.Param("id")

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "user_not_found", "Utilisateur introuvable.")
		} else {
			httperr.Internal(c, "failed_to_get_user", "Erreur interne.")
		}
		return nil, false
	}
	return &user, true
}
