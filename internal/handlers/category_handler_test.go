package handlers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvoireMarket/shop-api/internal/models"
)

func TestCategoryDeleteWithoutProducts(t *testing.T) {
	r, db := setupRouter(t)
	tok := adminToken(t, db)
	category := createCategory(t, db, "Vide")

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/categories/%d", category.ID), nil, tok)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/categories/%d", category.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoryDeleteBlockedByProducts(t *testing.T) {
	r, db := setupRouter(t)
	tok := adminToken(t, db)
	category := createCategory(t, db, "Occupée")
	createProduct(t, db, category.ID, "Produit 1", 100)
	createProduct(t, db, category.ID, "Produit 2", 200)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/categories/%d", category.ID), nil, tok)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "category_has_products", body["error_code"])
	assert.Contains(t, body["message"], "2 produit(s)")

	// category and its products are untouched
	var categoryCount, productCount int64
	db.Model(&models.Category{}).Where("id = ?", category.ID).Count(&categoryCount)
	db.Model(&models.Product{}).Where("category_id = ?", category.ID).Count(&productCount)
	assert.EqualValues(t, 1, categoryCount)
	assert.EqualValues(t, 2, productCount)
}

func TestCategoryNameMustBeUnique(t *testing.T) {
	r, db := setupRouter(t)
	tok := adminToken(t, db)
	createCategory(t, db, "Boissons")

	w := doJSON(t, r, http.MethodPost, "/api/categories", map[string]any{
		"name": "Boissons",
	}, tok)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "category_name_exists", decodeBody(t, w)["error_code"])
}

func TestCategoryUpdateKeepingOwnNameAllowed(t *testing.T) {
	r, db := setupRouter(t)
	tok := adminToken(t, db)
	category := createCategory(t, db, "Fruits")

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/categories/%d", category.ID), map[string]any{
		"name":        "Fruits",
		"description": "Fruits frais",
	}, tok)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCategoryNameLengthBound(t *testing.T) {
	r, db := setupRouter(t)
	tok := adminToken(t, db)

	w := doJSON(t, r, http.MethodPost, "/api/categories", map[string]any{
		"name": strings.Repeat("x", 101),
	}, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
