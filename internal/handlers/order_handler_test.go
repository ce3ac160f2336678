package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvoireMarket/shop-api/internal/models"
)

func checkoutBody(email string, productID uint) map[string]any {
	return map[string]any{
		"formData": map[string]any{
			"email":     email,
			"firstName": "Aya",
			"lastName":  "Kouassi",
			"phone":     "0707070707",
			"location":  "Cocody, Abidjan",
		},
		"cartItems": []map[string]any{
			{"product_id": productID, "quantity": 2, "price": 500.0},
		},
		"total": 1000.0,
	}
}

func TestGuestCheckoutCreatesGuestUserOrderAndDetails(t *testing.T) {
	r, db := setupRouter(t)
	category := createCategory(t, db, "Divers")
	product := createProduct(t, db, category.ID, "Attiéké", 500)

	w := doJSON(t, r, http.MethodPost, "/api/orders", checkoutBody("a@b.com", product.ID), "")
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	require.NotZero(t, body["orderId"])
	require.NotZero(t, body["userId"])

	var guest models.User
	require.NoError(t, db.Where("email = ?", "a@b.com").First(&guest).Error)
	assert.Equal(t, models.RoleGuest, guest.Role)
	assert.True(t, guest.Guest)
	assert.Empty(t, guest.PasswordHash)
	assert.Equal(t, "+2250707070707", guest.PhoneNumber)

	var ord models.Order
	require.NoError(t, db.Preload("Details").Where("user_id = ?", guest.ID).First(&ord).Error)
	assert.Equal(t, 1000.0, ord.Total)
	assert.Equal(t, "pending", ord.Status)

	require.Len(t, ord.Details, 1)
	assert.Equal(t, product.ID, ord.Details[0].ProductID)
	assert.Equal(t, 2, ord.Details[0].Quantity)
	// price captured from the submitted cart, not the product row
	assert.Equal(t, 500.0, ord.Details[0].Price)
}

func TestCheckoutDetailPriceIgnoresCurrentProductPrice(t *testing.T) {
	r, db := setupRouter(t)
	category := createCategory(t, db, "Divers")
	product := createProduct(t, db, category.ID, "Attiéké", 9999)

	w := doJSON(t, r, http.MethodPost, "/api/orders", checkoutBody("b@c.com", product.ID), "")
	require.Equal(t, http.StatusCreated, w.Code)

	var detail models.OrderDetail
	require.NoError(t, db.Where("product_id = ?", product.ID).First(&detail).Error)
	assert.Equal(t, 500.0, detail.Price)
}

func TestCheckoutDuplicateEmailFailsWithoutCreatingOrder(t *testing.T) {
	r, db := setupRouter(t)
	category := createCategory(t, db, "Divers")
	product := createProduct(t, db, category.ID, "Attiéké", 500)
	createUser(t, db, "a@b.com", models.RoleUser)

	w := doJSON(t, r, http.MethodPost, "/api/orders", checkoutBody("a@b.com", product.ID), "")
	require.Equal(t, http.StatusConflict, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "email_exists", body["error_code"])
	assert.Equal(t, models.RoleUser, body["role"])

	var orderCount int64
	db.Model(&models.Order{}).Count(&orderCount)
	assert.Zero(t, orderCount)
}

func TestCheckoutWithMatchingAuthenticatedAccountSucceeds(t *testing.T) {
	r, db := setupRouter(t)
	category := createCategory(t, db, "Divers")
	product := createProduct(t, db, category.ID, "Attiéké", 500)
	user := createUser(t, db, "a@b.com", models.RoleUser)

	w := doJSON(t, r, http.MethodPost, "/api/orders", checkoutBody("a@b.com", product.ID), tokenFor(t, user))
	require.Equal(t, http.StatusCreated, w.Code)

	var ord models.Order
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&ord).Error)

	// no duplicate guest row was synthesized
	var userCount int64
	db.Model(&models.User{}).Where("email = ?", "a@b.com").Count(&userCount)
	assert.EqualValues(t, 1, userCount)
}

func TestCheckoutUnknownProductFails(t *testing.T) {
	r, db := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/orders", checkoutBody("c@d.com", 777), "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "product_not_found", decodeBody(t, w)["error_code"])

	// the transaction rolled back the synthesized guest too
	var userCount int64
	db.Model(&models.User{}).Where("email = ?", "c@d.com").Count(&userCount)
	assert.Zero(t, userCount)
}

func TestOrderStatusUpdateRequiresAdmin(t *testing.T) {
	r, db := setupRouter(t)
	category := createCategory(t, db, "Divers")
	product := createProduct(t, db, category.ID, "Attiéké", 500)

	w := doJSON(t, r, http.MethodPost, "/api/orders", checkoutBody("e@f.com", product.ID), "")
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decodeBody(t, w)["orderId"]

	path := fmt.Sprintf("/api/orders/%v/status", orderID)
	statusBody := map[string]any{"status": "processing"}

	// no token
	w = doJSON(t, r, http.MethodPatch, path, statusBody, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// valid non-admin token
	user := createUser(t, db, "client@shop.ci", models.RoleUser)
	w = doJSON(t, r, http.MethodPatch, path, statusBody, tokenFor(t, user))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// status unchanged after both failures
	var ord models.Order
	require.NoError(t, db.First(&ord, "id = ?", orderID).Error)
	assert.Equal(t, "pending", ord.Status)

	// admin succeeds
	w = doJSON(t, r, http.MethodPatch, path, statusBody, adminToken(t, db))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, db.First(&ord, "id = ?", orderID).Error)
	assert.Equal(t, "processing", ord.Status)
}

func TestOrderStatusRejectsInvalidTransition(t *testing.T) {
	r, db := setupRouter(t)
	tok := adminToken(t, db)
	category := createCategory(t, db, "Divers")
	product := createProduct(t, db, category.ID, "Attiéké", 500)

	w := doJSON(t, r, http.MethodPost, "/api/orders", checkoutBody("g@h.com", product.ID), "")
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decodeBody(t, w)["orderId"]
	path := fmt.Sprintf("/api/orders/%v/status", orderID)

	// pending cannot jump straight to delivered
	w = doJSON(t, r, http.MethodPatch, path, map[string]any{"status": "delivered"}, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// free-form strings are rejected
	w = doJSON(t, r, http.MethodPatch, path, map[string]any{"status": "whatever"}, tok)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_status", decodeBody(t, w)["error_code"])
}

func TestOrderDeleteOnlyByOwner(t *testing.T) {
	r, db := setupRouter(t)
	category := createCategory(t, db, "Divers")
	product := createProduct(t, db, category.ID, "Attiéké", 500)
	owner := createUser(t, db, "owner@shop.ci", models.RoleUser)
	other := createUser(t, db, "other@shop.ci", models.RoleUser)

	w := doJSON(t, r, http.MethodPost, "/api/orders", checkoutBody("owner@shop.ci", product.ID), tokenFor(t, owner))
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decodeBody(t, w)["orderId"]
	path := fmt.Sprintf("/api/orders/%v", orderID)

	w = doJSON(t, r, http.MethodDelete, path, nil, tokenFor(t, other))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, path, nil, tokenFor(t, owner))
	require.Equal(t, http.StatusOK, w.Code)

	var detailCount int64
	db.Model(&models.OrderDetail{}).Where("order_id = ?", orderID).Count(&detailCount)
	assert.Zero(t, detailCount)
}

func TestOrderDeleteBlockedByDelivery(t *testing.T) {
	r, db := setupRouter(t)
	owner := createUser(t, db, "owner@shop.ci", models.RoleUser)
	courier := createUser(t, db, "courier@shop.ci", models.RoleDelivery)
	ord := createOrder(t, db, owner.ID)
	createDelivery(t, db, ord.ID, courier.ID, "delivering")

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/orders/%d", ord.ID), nil, tokenFor(t, owner))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "order_has_delivery", decodeBody(t, w)["error_code"])

	// the order and its details survive
	var count int64
	db.Model(&models.Order{}).Where("id = ?", ord.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}
