package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/IvoireMarket/shop-api/internal/audit"
	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/httpresp"
	"github.com/IvoireMarket/shop-api/internal/middleware"
	"github.com/IvoireMarket/shop-api/internal/models"
)

type BannerHandler struct {
	db    *gorm.DB
	audit *audit.Dispatcher
}

func NewBannerHandler(db *gorm.DB, auditDispatcher *audit.Dispatcher) *BannerHandler {
	return &BannerHandler{db: db, audit: auditDispatcher}
}

type BannerRequest struct {
	Title    string `json:"title" binding:"required"`
	ImageURL string `json:"image_url" binding:"required"`
	Link     string `json:"link"`
}

func (h *BannerHandler) List(c *gin.Context) {
	var banners []models.Banner
	if err := h.db.Order("created_at DESC").Find(&banners).Error; err != nil {
		httperr.Internal(c, "failed_to_list_banners", "Erreur lors du chargement des bannières.")
		return
	}
	httpresp.List(c, banners)
}

func (h *BannerHandler) Get(c *gin.Context) {
	banner, ok := h.findBanner(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, banner)
}

func (h *BannerHandler) Create(c *gin.Context) {
	var req BannerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Titre et image requis.")
		return
	}

	banner := models.Banner{
		Title:    req.Title,
		ImageURL: req.ImageURL,
		Link:     req.Link,
	}

	if err := h.db.Create(&banner).Error; err != nil {
		httperr.Internal(c, "failed_to_create_banner", "Impossible de créer la bannière.")
		return
	}

	httpresp.Created(c, banner)
}

func (h *BannerHandler) Update(c *gin.Context) {
	banner, ok := h.findBanner(c)
	if !ok {
		return
	}

	var req BannerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Titre et image requis.")
		return
	}

	banner.Title = req.Title
	banner.ImageURL = req.ImageURL
	banner.Link = req.Link

	if err := h.db.Save(banner).Error; err != nil {
		httperr.Internal(c, "failed_to_update_banner", "Impossible de mettre à jour la bannière.")
		return
	}

	c.JSON(http.StatusOK, banner)
}

func (h *BannerHandler) Delete(c *gin.Context) {
	banner, ok := h.findBanner(c)
	if !ok {
		return
	}

	if err := h.db.Delete(banner).Error; err != nil {
		httperr.Internal(c, "failed_to_delete_banner", "Impossible de supprimer la bannière.")
		return
	}

	adminID := c.MustGet(middleware.ContextUserID).(uint)
	h.audit.Dispatch(audit.Event{
		UserID:   &adminID,
		Action:   "banner_deleted",
		Entity:   "banner",
		EntityID: &banner.ID,
	})

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *BannerHandler) findBanner(c *gin.Context) (*models.Banner, bool) {
	id := c.Param("id")

	var banner models.Banner
	if err := h.db.First(&banner, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "banner_not_found", "Bannière introuvable.")
		} else {
			httperr.Internal(c, "failed_to_get_banner", "Erreur interne.")
		}
		return nil, false
	}
	return &banner, true
}
