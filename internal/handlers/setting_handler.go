package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IvoireMarket/shop-api/internal/cache"
	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/models"
)

type SettingHandler struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewSettingHandler(db *gorm.DB, cc *cache.Cache) *SettingHandler {
	return &SettingHandler{db: db, cache: cc}
}

// Get collapses the whole table into a single {key: value} object.
func (h *SettingHandler) Get(c *gin.Context) {
	var cached map[string]string
	if err := h.cache.GetJSON(c.Request.Context(), cache.KeySettings, &cached); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	var rows []models.Setting
	if err := h.db.Find(&rows).Error; err != nil {
		httperr.Internal(c, "failed_to_get_settings", "Erreur lors du chargement des paramètres.")
		return
	}

	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Key] = row.Value
	}

	h.cache.SetJSON(c.Request.Context(), cache.KeySettings, settings)

	c.JSON(http.StatusOK, settings)
}

// Upsert accepts a {key: value} object and inserts-or-updates every pair.
// Applying the same object twice leaves a single row per key.
func (h *SettingHandler) Upsert(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
		httperr.BadRequest(c, "invalid_request", "Objet clé/valeur attendu.")
		return
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range req {
			row := models.Setting{Key: key, Value: value}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		httperr.Internal(c, "failed_to_save_settings", "Impossible d'enregistrer les paramètres.")
		return
	}

	h.cache.Invalidate(c.Request.Context(), cache.KeySettings)

	c.JSON(http.StatusOK, gin.H{"saved": len(req)})
}
