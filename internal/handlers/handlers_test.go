package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/IvoireMarket/shop-api/internal/audit"
	"github.com/IvoireMarket/shop-api/internal/config"
	dbpkg "github.com/IvoireMarket/shop-api/internal/db"
	"github.com/IvoireMarket/shop-api/internal/events"
	"github.com/IvoireMarket/shop-api/internal/mailer"
	"github.com/IvoireMarket/shop-api/internal/models"
	"github.com/IvoireMarket/shop-api/internal/routes"
	"github.com/IvoireMarket/shop-api/internal/token"
)

const testSecret = "test-secret"

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	r, db, _ := setupRouterWithAudit(t)
	return r, db
}

// setupRouterWithAudit also hands back the audit dispatcher so tests can
// drain it before asserting on written audit rows.
func setupRouterWithAudit(t *testing.T) (*gin.Engine, *gorm.DB, *audit.Dispatcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// a single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, dbpkg.Migrate(db))

	cfg := &config.Config{Env: "test", JWTSecret: testSecret}
	dispatcher := audit.NewDispatcher(audit.New(db))

	r := gin.New()
	routes.RegisterRoutes(r, db, cfg, routes.Deps{
		Producer: events.NopProducer{},
		Mailer:   mailer.New(cfg),
		Audit:    dispatcher,
	})

	return r, db, dispatcher
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, tok string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		// usernames carry a unique index, derive one from the email
		Username:     "Test " + email,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	tok, err := token.NewCodec(testSecret).Issue(user.ID, user.Email, user.Role)
	require.NoError(t, err)
	return tok
}

func createCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	require.NoError(t, db.Create(category).Error)
	return category
}

func createProduct(t *testing.T, db *gorm.DB, categoryID uint, name string, price float64) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:       name,
		Price:      price,
		Stock:      10,
		CategoryID: categoryID,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func adminToken(t *testing.T, db *gorm.DB) string {
	t.Helper()
	admin := createUser(t, db, fmt.Sprintf("admin-%s@shop.ci", t.Name()), models.RoleAdmin)
	return tokenFor(t, admin)
}
