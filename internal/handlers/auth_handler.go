package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/IvoireMarket/shop-api/internal/config"
	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/middleware"
	"github.com/IvoireMarket/shop-api/internal/models"
	"github.com/IvoireMarket/shop-api/internal/token"
	"github.com/IvoireMarket/shop-api/internal/validators"
)

type AuthHandler struct {
	db     *gorm.DB
	config *config.Config
	codec  *token.Codec
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config, codec *token.Codec) *AuthHandler {
	return &AuthHandler{db: db, config: cfg, codec: codec}
}

// --------- Requests ---------

type RegisterRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	PhoneNumber string `json:"phone_number"`
	Location    string `json:"location"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// --------- Handlers ---------

func (h *AuthHandler) Register(c *gin.Context) {
	h.register(c, models.RoleUser)
}

// RegisterAdmin bootstraps the very first admin without a token; every later
// admin must be created by an authenticated admin.
func (h *AuthHandler) RegisterAdmin(c *gin.Context) {
	var adminCount int64
	if err := h.db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&adminCount).Error; err != nil {
		httperr.Internal(c, "internal_error", "Erreur interne.")
		return
	}

	if adminCount > 0 {
		claims := h.claimsFromRequest(c)
		if claims == nil {
			httperr.Unauthorized(c, "missing_token", "Authentification requise.")
			return
		}
		if claims.Role != models.RoleAdmin {
			httperr.Forbidden(c, "insufficient_role", "Accès réservé aux administrateurs.")
			return
		}
	}

	h.register(c, models.RoleAdmin)
}

func (h *AuthHandler) register(c *gin.Context, role string) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Données invalides.")
		return
	}

	email := validators.NormalizeEmail(req.Email)

	// Domain probing needs live DNS, so dev and test environments skip it.
	if h.config.IsProd() && !validators.IsEmailDomainValid(email) {
		httperr.BadRequest(c, "invalid_email_domain", "Le domaine de cet e-mail est inconnu.")
		return
	}

	var user models.User
	err := h.db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil && user.Guest:
		// A guest row from an earlier checkout is upgraded in place so its
		// order history follows the new credentials.
	case err == nil:
		httperr.Conflict(c, "email_exists", "Un compte existe déjà avec cet e-mail.")
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Email: email}
	default:
		httperr.Internal(c, "internal_error", "Erreur interne.")
		return
	}

	var usernameCount int64
	h.db.Model(&models.User{}).
		Where("username = ? AND id <> ?", req.Username, user.ID).
		Count(&usernameCount)
	if usernameCount > 0 {
		httperr.Conflict(c, "username_exists", "Ce nom d'utilisateur est déjà pris.")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.Internal(c, "failed_to_hash_password", "Erreur interne.")
		return
	}

	user.Username = req.Username
	user.PasswordHash = string(hashed)
	user.Role = role
	user.Guest = false
	if req.PhoneNumber != "" {
		user.PhoneNumber = validators.NormalizePhone(req.PhoneNumber)
	}
	if req.Location != "" {
		user.Location = req.Location
	}

	if err := h.db.Save(&user).Error; err != nil {
		// Unique indexes on email and username catch the check-then-act race.
		if isUniqueViolation(err) {
			httperr.Conflict(c, "user_exists", "E-mail ou nom d'utilisateur déjà utilisé.")
			return
		}
		httperr.Internal(c, "failed_to_create_user", "Impossible de créer le compte.")
		return
	}

	tok, err := h.codec.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Erreur interne.")
		return
	}
	h.setSessionCookie(c, tok)

	c.JSON(http.StatusCreated, gin.H{
		"user":  user,
		"token": tok,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Données invalides.")
		return
	}

	email := validators.NormalizeEmail(req.Email)

	var user models.User
	if err := h.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.Unauthorized(c, "invalid_credentials", "E-mail ou mot de passe incorrect.")
			return
		}
		httperr.Internal(c, "internal_error", "Erreur interne.")
		return
	}

	// Guest rows carry no credentials.
	if user.Guest || user.PasswordHash == "" {
		httperr.Unauthorized(c, "invalid_credentials", "E-mail ou mot de passe incorrect.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httperr.Unauthorized(c, "invalid_credentials", "E-mail ou mot de passe incorrect.")
		return
	}

	tok, err := h.codec.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Erreur interne.")
		return
	}
	h.setSessionCookie(c, tok)

	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"token": tok,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.config.IsProd(), true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httperr.NotFound(c, "user_not_found", "Utilisateur introuvable.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Refresh re-issues a token for a still-valid session. Expired tokens fail
// with token_expired so the client can force a login.
func (h *AuthHandler) Refresh(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uint)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		httperr.Unauthorized(c, "invalid_token", "Session invalide.")
		return
	}

	tok, err := h.codec.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		httperr.Internal(c, "failed_to_generate_token", "Erreur interne.")
		return
	}
	h.setSessionCookie(c, tok)

	c.JSON(http.StatusOK, gin.H{"token": tok})
}

// --------- Helpers ---------

func (h *AuthHandler) setSessionCookie(c *gin.Context, tok string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		middleware.SessionCookie,
		tok,
		int(token.TTL.Seconds()),
		"/",
		"",
		h.config.IsProd(),
		true,
	)
}

func (h *AuthHandler) claimsFromRequest(c *gin.Context) *token.Claims {
	var raw string
	if ah := c.GetHeader("Authorization"); len(ah) > 7 && ah[:7] == "Bearer " {
		raw = ah[7:]
	} else if v, err := c.Cookie(middleware.SessionCookie); err == nil {
		raw = v
	}
	if raw == "" {
		return nil
	}
	claims, err := h.codec.Verify(raw)
	if err != nil {
		return nil
	}
	return claims
}
