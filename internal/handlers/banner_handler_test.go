package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvoireMarket/shop-api/internal/models"
)

func TestBannerCRUD(t *testing.T) {
	r, db := setupRouter(t)
	tok := adminToken(t, db)

	w := doJSON(t, r, http.MethodPost, "/api/banners", map[string]any{
		"title":     "Promo rentrée",
		"image_url": "https://cdn.shop.ci/promo.webp",
		"link":      "/categories/1",
	}, tok)
	require.Equal(t, http.StatusCreated, w.Code)

	var banner models.Banner
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &banner))

	// public read
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/banners/%d", banner.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/banners/%d", banner.ID), map[string]any{
		"title":     "Promo prolongée",
		"image_url": "https://cdn.shop.ci/promo2.webp",
	}, tok)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/banners/%d", banner.ID), nil, tok)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/banners/%d", banner.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBannerGetUnknown(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/banners/404", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
