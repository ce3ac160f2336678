package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/IvoireMarket/shop-api/internal/audit"
	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/httpresp"
	"github.com/IvoireMarket/shop-api/internal/middleware"
	"github.com/IvoireMarket/shop-api/internal/models"
)

type CategoryHandler struct {
	db    *gorm.DB
	audit *audit.Dispatcher
}

func NewCategoryHandler(db *gorm.DB, auditDispatcher *audit.Dispatcher) *CategoryHandler {
	return &CategoryHandler{db: db, audit: auditDispatcher}
}

// --------- Requests ---------

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// --------- Handlers ---------

func (h *CategoryHandler) List(c *gin.Context) {
	var categories []models.Category
	if err := h.db.Order("name ASC").Find(&categories).Error; err != nil {
		httperr.Internal(c, "failed_to_list_categories", "Erreur lors du chargement des catégories.")
		return
	}
	httpresp.List(c, categories)
}

func (h *CategoryHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "category_not_found", "Catégorie introuvable.")
			return
		}
		httperr.Internal(c, "failed_to_get_category", "Erreur interne.")
		return
	}

	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Le nom est requis (100 caractères max).")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		httperr.BadRequest(c, "invalid_request", "Le nom est requis (100 caractères max).")
		return
	}

	if h.nameTaken(name, 0) {
		httperr.Conflict(c, "category_name_exists", "Une catégorie porte déjà ce nom.")
		return
	}

	category := models.Category{
		Name:        name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}

	if err := h.db.Create(&category).Error; err != nil {
		// The unique index catches the check-then-act race the pre-check
		// leaves open.
		if isUniqueViolation(err) {
			httperr.Conflict(c, "category_name_exists", "Une catégorie porte déjà ce nom.")
			return
		}
		httperr.Internal(c, "failed_to_create_category", "Impossible de créer la catégorie.")
		return
	}

	httpresp.Created(c, category)
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "category_not_found", "Catégorie introuvable.")
			return
		}
		httperr.Internal(c, "failed_to_get_category", "Erreur interne.")
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Le nom est requis (100 caractères max).")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		httperr.BadRequest(c, "invalid_request", "Le nom est requis (100 caractères max).")
		return
	}

	if h.nameTaken(name, category.ID) {
		httperr.Conflict(c, "category_name_exists", "Une catégorie porte déjà ce nom.")
		return
	}

	category.Name = name
	category.Description = req.Description
	category.ImageURL = req.ImageURL

	if err := h.db.Save(&category).Error; err != nil {
		if isUniqueViolation(err) {
			httperr.Conflict(c, "category_name_exists", "Une catégorie porte déjà ce nom.")
			return
		}
		httperr.Internal(c, "failed_to_update_category", "Impossible de mettre à jour la catégorie.")
		return
	}

	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "category_not_found", "Catégorie introuvable.")
			return
		}
		httperr.Internal(c, "failed_to_get_category", "Erreur interne.")
		return
	}

	var productCount int64
	if err := h.db.Model(&models.Product{}).
		Where("category_id = ?", category.ID).
		Count(&productCount).Error; err != nil {
		httperr.Internal(c, "failed_to_delete_category", "Erreur interne.")
		return
	}

	if productCount > 0 {
		httperr.BadRequest(c, "category_has_products", fmt.Sprintf(
			"Impossible de supprimer : %d produit(s) utilisent encore cette catégorie. Déplacez-les ou supprimez-les d'abord.",
			productCount,
		))
		return
	}

	if err := h.db.Delete(&category).Error; err != nil {
		httperr.Internal(c, "failed_to_delete_category", "Impossible de supprimer la catégorie.")
		return
	}

	adminID := c.MustGet(middleware.ContextUserID).(uint)
	h.audit.Dispatch(audit.Event{
		UserID:   &adminID,
		Action:   "category_deleted",
		Entity:   "category",
		EntityID: &category.ID,
	})

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// --------- Helpers ---------

func (h *CategoryHandler) nameTaken(name string, excludeID uint) bool {
	var count int64
	h.db.Model(&models.Category{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), excludeID).
		Count(&count)
	return count > 0
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key")
}
