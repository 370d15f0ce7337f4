package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/cppla/sharebox/config"
	"github.com/cppla/sharebox/middleware"
	"github.com/cppla/sharebox/models"
	"github.com/cppla/sharebox/services"
	"github.com/cppla/sharebox/utils"
)

const maxNameRunes = 128

// AuthController handles local accounts, OAuth sign-in and sessions.
type AuthController struct {
	db       *gorm.DB
	settings *services.SettingsService
}

func NewAuthController(db *gorm.DB, settings *services.SettingsService) *AuthController {
	return &AuthController{db: db, settings: settings}
}

// Register creates a local account. New accounts wait for approval when the
// settings require it; configured admin emails are approved admins immediately.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Email         string `json:"email" binding:"required,email,max=255"`
		Password      string `json:"password" binding:"required,min=8,max=72"`
		Name          string `json:"name" binding:"omitempty,max=256"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "a valid email and a password of at least 8 characters are required")
		return
	}

	if config.Get().RegisterCaptchaEnabled && !utils.VerifyCaptcha(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
		utils.Error(ctx, http.StatusBadRequest, 40005, "captcha verification failed")
		return
	}

	email := normalizeEmail(req.Email)
	var existing int64
	if err := a.db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		respondError(ctx, err)
		return
	}
	if existing > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(ctx, fmt.Errorf("hash password: %w", err))
		return
	}
	user := models.User{
		Email:        email,
		Name:         utils.SanitizeTitle(req.Name, maxNameRunes),
		PasswordHash: hash,
		Provider:     "local",
		RegisterIP:   ctx.ClientIP(),
	}
	if err := a.applyAccess(ctx, &user); err != nil {
		respondError(ctx, err)
		return
	}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
			return
		}
		respondError(ctx, fmt.Errorf("create user: %w", err))
		return
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID, "approved", user.IsApproved, "admin", user.IsAdmin)

	if !user.IsApproved {
		utils.Respond(ctx, http.StatusAccepted, 0, "account created, waiting for approval", gin.H{"user": user, "pending": true})
		return
	}
	a.issueSession(ctx, http.StatusCreated, &user)
}

// Login verifies email and password and starts a session.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid email or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid email or password")
		return
	}
	a.startSession(ctx, &user)
}

// Logout revokes the current session token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	claims := middleware.SessionClaims(ctx)
	if claims != nil && claims.ExpiresAt != nil {
		utils.BlacklistToken(claims.ID, claims.ExpiresAt.Time)
	}
	setSessionCookie(ctx, "", -1)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the signed-in user.
func (a *AuthController) Me(ctx *gin.Context) {
	utils.Success(ctx, middleware.CurrentUser(ctx))
}

// Captcha returns a fresh captcha for the registration form.
func (a *AuthController) Captcha(ctx *gin.Context) {
	if !config.Get().RegisterCaptchaEnabled {
		utils.Success(ctx, gin.H{"enabled": false})
		return
	}
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"enabled": true, "id": id, "image": b64})
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	utils.Success(ctx, gin.H{"authorization_url": cfg.AuthCodeURL(state), "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and starts a session.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()

	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}
	info, err := fetchOAuthUser(reqCtx, cfg, provider, token)
	if err != nil {
		utils.Sugar.Warnf("oauth profile fetch failed provider=%s err=%v", provider, err)
		utils.Error(ctx, http.StatusBadGateway, 50201, "failed to read profile from provider")
		return
	}
	if info.Email == "" {
		utils.Error(ctx, http.StatusBadRequest, 40008, "the provider did not share an email address")
		return
	}

	user, err := a.findOrCreateOAuthUser(ctx, provider, info)
	if err != nil {
		respondError(ctx, fmt.Errorf("persist oauth user: %w", err))
		return
	}
	a.startSession(ctx, user)
}

// startSession applies admin promotion and the approval rule, then issues a token.
func (a *AuthController) startSession(ctx *gin.Context, user *models.User) {
	wasAdmin := user.IsAdmin
	if err := a.applyAccess(ctx, user); err != nil {
		respondError(ctx, err)
		return
	}
	if user.IsAdmin && !wasAdmin {
		if err := a.db.Model(user).Updates(map[string]interface{}{"is_admin": true, "is_approved": true}).Error; err != nil {
			respondError(ctx, fmt.Errorf("promote admin: %w", err))
			return
		}
	}

	settings, err := a.settings.Get(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	if settings.RequireApproval && !user.IsApproved && !user.IsAdmin {
		utils.Error(ctx, http.StatusForbidden, 40302, "account is waiting for approval")
		return
	}
	a.issueSession(ctx, http.StatusOK, user)
}

// applyAccess sets the flags a user gets at sign-up or sign-in. It never revokes anything.
func (a *AuthController) applyAccess(ctx *gin.Context, user *models.User) error {
	if isAdminEmail(user.Email) {
		user.IsAdmin = true
		user.IsApproved = true
		return nil
	}
	if user.ID != 0 {
		return nil
	}
	settings, err := a.settings.Get(ctx.Request.Context())
	if err != nil {
		return err
	}
	user.IsApproved = !settings.RequireApproval
	return nil
}

func (a *AuthController) issueSession(ctx *gin.Context, status int, user *models.User) {
	ttl := time.Duration(config.Get().SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	token, err := utils.GenerateToken(user.ID, user.Email, ttl)
	if err != nil {
		respondError(ctx, fmt.Errorf("generate token: %w", err))
		return
	}
	setSessionCookie(ctx, token, int(ttl.Seconds()))
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token":      token,
		"expires_at": time.Now().Add(ttl),
		"user":       user,
	})
}

func setSessionCookie(ctx *gin.Context, token string, maxAge int) {
	secure := strings.HasPrefix(config.Get().BaseURL, "https://")
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", secure, true)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isAdminEmail(email string) bool {
	email = normalizeEmail(email)
	for _, e := range config.Get().AdminEmails {
		if normalizeEmail(e) == email && email != "" {
			return true
		}
	}
	return false
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", strings.TrimRight(cfg.OAuthRedirectBase, "/")),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", strings.TrimRight(cfg.OAuthRedirectBase, "/")),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID    string
	Name  string
	Email string
}

// fetchOAuthUser reads the profile with an HTTP client that carries the access token.
func fetchOAuthUser(ctx context.Context, cfg *oauth2.Config, provider string, token *oauth2.Token) (*oauthUser, error) {
	client := resty.NewWithClient(cfg.Client(ctx, token)).SetTimeout(10 * time.Second)
	switch provider {
	case "github":
		return fetchGitHubUser(ctx, client)
	case "google":
		return fetchGoogleUser(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchGitHubUser(ctx context.Context, client *resty.Client) (*oauthUser, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	resp, err := client.R().SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		SetResult(&payload).
		Get("https://api.github.com/user")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("github user info request failed: %s", resp.Status())
	}

	email := payload.Email
	if primary, err := fetchGitHubEmail(ctx, client); err == nil && primary != "" {
		email = primary
	}
	return &oauthUser{
		ID:    fmt.Sprintf("%d", payload.ID),
		Name:  fallback(payload.Name, payload.Login),
		Email: normalizeEmail(email),
	}, nil
}

func fetchGitHubEmail(ctx context.Context, client *resty.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	resp, err := client.R().SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		SetResult(&emails).
		Get("https://api.github.com/user/emails")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("github emails request failed: %s", resp.Status())
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func fetchGoogleUser(ctx context.Context, client *resty.Client) (*oauthUser, error) {
	var payload struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	resp, err := client.R().SetContext(ctx).SetResult(&payload).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("google user info request failed: %s", resp.Status())
	}
	email := ""
	if payload.VerifiedEmail {
		email = normalizeEmail(payload.Email)
	}
	return &oauthUser{ID: payload.ID, Name: payload.Name, Email: email}, nil
}

// findOrCreateOAuthUser matches on the provider identity first, then links an
// existing account with the same email, and otherwise creates one.
func (a *AuthController) findOrCreateOAuthUser(ctx *gin.Context, provider string, info *oauthUser) (*models.User, error) {
	db := a.db.WithContext(ctx.Request.Context())
	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", provider, info.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Where("email = ?", info.Email).First(&user).Error
	if err == nil {
		if user.ProviderID == "" {
			if err := db.Model(&user).Updates(map[string]interface{}{"provider": provider, "provider_id": info.ID}).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Email:      info.Email,
		Name:       utils.SanitizeTitle(info.Name, maxNameRunes),
		Provider:   provider,
		ProviderID: info.ID,
		RegisterIP: ctx.ClientIP(),
	}
	if err := a.applyAccess(ctx, &user); err != nil {
		return nil, err
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
