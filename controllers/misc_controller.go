package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/cppla/sharebox/services"
	"github.com/cppla/sharebox/themes"
	"github.com/cppla/sharebox/utils"
	"github.com/cppla/sharebox/web"
)

const (
	maxQRInput = 2048
	qrCacheTTL = 24 * time.Hour
)

// MiscController serves QR codes, theme tokens and the health probe.
type MiscController struct {
	settings *services.SettingsService
	rc       *redis.Client
}

// NewMiscController creates the endpoints; rc may be nil, which disables the QR cache.
func NewMiscController(settings *services.SettingsService, rc *redis.Client) *MiscController {
	return &MiscController{settings: settings, rc: rc}
}

// QRCode renders the posted text, usually a share URL, as a PNG data URL.
// Rendered codes are cached in Redis when it is configured.
func (m *MiscController) QRCode(ctx *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40001, "content is required")
		return
	}
	if len(req.Content) > maxQRInput {
		utils.Error(ctx, http.StatusBadRequest, 40001, "content is too long for a qr code")
		return
	}

	key := "cache:qr:" + req.Content
	if b, ok := utils.CacheGetBytes(m.rc, key); ok {
		utils.Success(ctx, gin.H{"qr_code": string(b)})
		return
	}
	uri, err := utils.QRCodeDataURL(req.Content)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "content cannot be encoded as a qr code")
		return
	}
	utils.CacheSetBytes(m.rc, key, []byte(uri), qrCacheTTL)
	utils.Success(ctx, gin.H{"qr_code": uri})
}

// Theme returns the color tokens of the active theme.
func (m *MiscController) Theme(ctx *gin.Context) {
	theme, err := m.settings.Theme(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, theme)
}

// Themes lists every selectable theme.
func (m *MiscController) Themes(ctx *gin.Context) {
	utils.Success(ctx, themes.All())
}

// Health is the liveness probe.
func (m *MiscController) Health(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"status": "ok"})
}

// serveApp hands the request to the single page app.
func serveApp(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
}

// NotFound answers unknown API and asset paths with 404 and everything else with the app.
func NotFound(ctx *gin.Context) {
	path := ctx.Request.URL.Path
	if strings.HasPrefix(path, "/api/") {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
		return
	}
	if strings.HasPrefix(path, "/static/") {
		utils.Error(ctx, http.StatusNotFound, 40402, "static asset not found")
		return
	}
	serveApp(ctx)
}
