package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/IvoireMarket/shop-api/internal/models"
)

func TestUpdateSelfPatchesOnlyProvidedFields(t *testing.T) {
	r, db := setupRouter(t)
	user := createUser(t, db, "aya@shop.ci", models.RoleUser)
	user.Location = "Yopougon"
	require.NoError(t, db.Save(user).Error)

	w := doJSON(t, r, http.MethodPatch, "/api/users/me", map[string]any{
		"phone_number": "0101010101",
	}, tokenFor(t, user))
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, "+2250101010101", reloaded.PhoneNumber)
	// untouched fields survive
	assert.Equal(t, "Yopougon", reloaded.Location)
	assert.Equal(t, "aya@shop.ci", reloaded.Email)
}

func TestUpdateSelfRehashesPassword(t *testing.T) {
	r, db := setupRouter(t)
	user := createUser(t, db, "aya@shop.ci", models.RoleUser)
	oldHash := user.PasswordHash

	w := doJSON(t, r, http.MethodPatch, "/api/users/me", map[string]any{
		"password": "newsecret",
	}, tokenFor(t, user))
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.NotEqual(t, oldHash, reloaded.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.PasswordHash), []byte("newsecret")))
}

func TestUpdateSelfCannotEscalateRole(t *testing.T) {
	r, db := setupRouter(t)
	user := createUser(t, db, "aya@shop.ci", models.RoleUser)

	w := doJSON(t, r, http.MethodPatch, "/api/users/me", map[string]any{
		"role": "admin",
	}, tokenFor(t, user))
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, models.RoleUser, reloaded.Role)
}

func TestUpdateSelfTargetsTokenUserOnly(t *testing.T) {
	r, db := setupRouter(t)
	caller := createUser(t, db, "caller@shop.ci", models.RoleUser)
	victim := createUser(t, db, "victim@shop.ci", models.RoleUser)

	// the route carries no id, the claims decide the target
	w := doJSON(t, r, http.MethodPatch, "/api/users/me", map[string]any{
		"username": "Pwned",
	}, tokenFor(t, caller))
	require.Equal(t, http.StatusOK, w.Code)

	var reloadedVictim models.User
	require.NoError(t, db.First(&reloadedVictim, victim.ID).Error)
	assert.NotEqual(t, "Pwned", reloadedVictim.Username)
}

func TestUpdateSelfEmailConflict(t *testing.T) {
	r, db := setupRouter(t)
	user := createUser(t, db, "aya@shop.ci", models.RoleUser)
	createUser(t, db, "taken@shop.ci", models.RoleUser)

	w := doJSON(t, r, http.MethodPatch, "/api/users/me", map[string]any{
		"email": "taken@shop.ci",
	}, tokenFor(t, user))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateSelfUsernameConflict(t *testing.T) {
	r, db := setupRouter(t)
	user := createUser(t, db, "aya@shop.ci", models.RoleUser)
	other := createUser(t, db, "autre@shop.ci", models.RoleUser)

	w := doJSON(t, r, http.MethodPatch, "/api/users/me", map[string]any{
		"username": other.Username,
	}, tokenFor(t, user))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "username_exists", decodeBody(t, w)["error_code"])
}

func TestUserDeleteBlockedByOrders(t *testing.T) {
	r, db := setupRouter(t)
	tok := adminToken(t, db)
	buyer := createUser(t, db, "buyer@shop.ci", models.RoleUser)
	createOrder(t, db, buyer.ID)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/users/%d", buyer.ID), nil, tok)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user_has_orders", decodeBody(t, w)["error_code"])

	// the account survives
	var count int64
	db.Model(&models.User{}).Where("id = ?", buyer.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestAdminUserCRUD(t *testing.T) {
	r, db := setupRouter(t)
	tok := adminToken(t, db)

	w := doJSON(t, r, http.MethodPost, "/api/users", map[string]any{
		"username":     "Livreur Un",
		"email":        "livreur@shop.ci",
		"password":     "secret123",
		"role":         "delivery",
		"phone_number": "0505050505",
	}, tok)
	require.Equal(t, http.StatusCreated, w.Code)

	var courier models.User
	require.NoError(t, db.Where("email = ?", "livreur@shop.ci").First(&courier).Error)
	assert.Equal(t, models.RoleDelivery, courier.Role)
	assert.Equal(t, "+2250505050505", courier.PhoneNumber)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/users/%d", courier.ID), nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), courier.PasswordHash)

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/users/%d", courier.ID), map[string]any{
		"username": "Livreur Deux",
	}, tok)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/users/%d", courier.ID), nil, tok)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/users/%d", courier.ID), nil, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserListRequiresAdmin(t *testing.T) {
	r, db := setupRouter(t)
	user := createUser(t, db, "plain@shop.ci", models.RoleUser)

	w := doJSON(t, r, http.MethodGet, "/api/users", nil, tokenFor(t, user))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
