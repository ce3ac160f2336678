package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/IvoireMarket/shop-api/internal/audit"
	"github.com/IvoireMarket/shop-api/internal/cache"
	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/httpresp"
	"github.com/IvoireMarket/shop-api/internal/middleware"
	"github.com/IvoireMarket/shop-api/internal/models"
)

type ProductHandler struct {
	db    *gorm.DB
	cache *cache.Cache
	audit *audit.Dispatcher
}

func NewProductHandler(db *gorm.DB, cc *cache.Cache, auditDispatcher *audit.Dispatcher) *ProductHandler {
	return &ProductHandler{db: db, cache: cc, audit: auditDispatcher}
}

// --------- Requests ---------

type ProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	Stock       *int     `json:"stock" binding:"required,min=0"`
	CategoryID  uint     `json:"category_id" binding:"required"`
	Images      []string `json:"images"`
}

// --------- Handlers ---------

func (h *ProductHandler) List(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category_id"))
	query := strings.ToLower(strings.TrimSpace(c.Query("query")))

	// Unfiltered listing is the hot storefront path, served from cache.
	if category == "" && query == "" {
		var cached []models.Product
		if err := h.cache.GetJSON(c.Request.Context(), cache.KeyProducts, &cached); err == nil {
			httpresp.List(c, cached)
			return
		}
	}

	q := h.db.Preload("Images").Preload("Category")

	if category != "" {
		q = q.Where("category_id = ?", category)
	}
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var products []models.Product
	if err := q.Order("created_at DESC").Find(&products).Error; err != nil {
		httperr.Internal(c, "failed_to_list_products", "Erreur lors du chargement des produits.")
		return
	}

	if category == "" && query == "" {
		h.cache.SetJSON(c.Request.Context(), cache.KeyProducts, products)
	}

	httpresp.List(c, products)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var product models.Product
	if err := h.db.
		Preload("Images").
		Preload("Category").
		First(&product, "products.id = ?", id).Error; err != nil {

		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "product_not_found", "Produit introuvable.")
			return
		}
		httperr.Internal(c, "failed_to_get_product", "Erreur interne.")
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Champs requis manquants ou invalides.")
		return
	}

	var category models.Category
	if err := h.db.First(&category, req.CategoryID).Error; err != nil {
		httperr.BadRequest(c, "category_not_found", "La catégorie indiquée n'existe pas.")
		return
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       *req.Stock,
		CategoryID:  req.CategoryID,
	}
	for _, url := range req.Images {
		product.Images = append(product.Images, models.ProductImage{ImageURL: url})
	}

	// Product and its images land together or not at all.
	if err := h.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&product).Error
	}); err != nil {
		httperr.Internal(c, "failed_to_create_product", "Impossible de créer le produit.")
		return
	}

	h.cache.Invalidate(c.Request.Context(), cache.KeyProducts)

	product.Category = category
	httpresp.Created(c, product)
}

func (h *ProductHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Champs requis manquants ou invalides.")
		return
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "product_not_found", "Produit introuvable.")
			return
		}
		httperr.Internal(c, "failed_to_get_product", "Erreur interne.")
		return
	}

	if err := h.db.First(&models.Category{}, req.CategoryID).Error; err != nil {
		httperr.BadRequest(c, "category_not_found", "La catégorie indiquée n'existe pas.")
		return
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.Stock = *req.Stock
	product.CategoryID = req.CategoryID

	// Image set is replaced, never merged.
	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&product).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).
			Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		for _, url := range req.Images {
			img := models.ProductImage{ProductID: product.ID, ImageURL: url}
			if err := tx.Create(&img).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		httperr.Internal(c, "failed_to_update_product", "Impossible de mettre à jour le produit.")
		return
	}

	h.cache.Invalidate(c.Request.Context(), cache.KeyProducts)

	var updated models.Product
	if err := h.db.Preload("Images").Preload("Category").
		First(&updated, product.ID).Error; err != nil {
		httperr.Internal(c, "failed_to_get_product", "Erreur interne.")
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "product_not_found", "Produit introuvable.")
			return
		}
		httperr.Internal(c, "failed_to_get_product", "Erreur interne.")
		return
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).
			Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	}); err != nil {
		httperr.Internal(c, "failed_to_delete_product", "Impossible de supprimer le produit.")
		return
	}

	h.cache.Invalidate(c.Request.Context(), cache.KeyProducts)

	adminID := c.MustGet(middleware.ContextUserID).(uint)
	h.audit.Dispatch(audit.Event{
		UserID:   &adminID,
		Action:   "product_deleted",
		Entity:   "product",
		EntityID: &product.ID,
	})

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
