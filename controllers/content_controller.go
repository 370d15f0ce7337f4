package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/sharebox/middleware"
	"github.com/cppla/sharebox/services"
	"github.com/cppla/sharebox/storage"
	"github.com/cppla/sharebox/utils"
)

// DownloadTicketTTL bounds how long an unlocked file link stays usable.
const DownloadTicketTTL = 5 * time.Minute

// ContentController serves creation, access attempts and downloads for every kind.
type ContentController struct {
	creator *services.Creator
	gate    *services.Gate
	store   storage.Store
}

// NewContentController creates the content endpoints.
func NewContentController(creator *services.Creator, gate *services.Gate, store storage.Store) *ContentController {
	return &ContentController{creator: creator, gate: gate, store: store}
}

type createRequest struct {
	URL           string     `json:"url"`
	Content       string     `json:"content"`
	Language      string     `json:"language" binding:"omitempty,max=32"`
	Title         string     `json:"title" binding:"omitempty,max=1024"`
	CustomSlug    string     `json:"custom_slug" binding:"omitempty,max=64"`
	Password      string     `json:"password" binding:"omitempty,max=128"`
	ExpiresAt     *time.Time `json:"expires_at"`
	ExpiresInDays *int       `json:"expires_in_days"`
}

func (r createRequest) options() services.Options {
	return services.Options{
		CustomSlug:    r.CustomSlug,
		Password:      r.Password,
		Title:         r.Title,
		ExpiresAt:     r.ExpiresAt,
		ExpiresInDays: r.ExpiresInDays,
	}
}

func caller(ctx *gin.Context) services.Caller {
	return services.Caller{User: middleware.CurrentUser(ctx), IP: ctx.ClientIP()}
}

// Create stores a new link, paste or upload. Links and pastes are JSON; uploads are multipart.
func (c *ContentController) Create(ctx *gin.Context) {
	kind, err := services.ParseKind(ctx.Param("kind"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	var created *services.Created
	switch kind {
	case services.KindFile:
		created, err = c.createFile(ctx)
	default:
		var req createRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
			return
		}
		if kind == services.KindURL {
			created, err = c.creator.CreateURL(ctx.Request.Context(), caller(ctx), services.URLInput{Options: req.options(), URL: req.URL})
		} else {
			created, err = c.creator.CreateText(ctx.Request.Context(), caller(ctx), services.TextInput{Options: req.options(), Content: req.Content, Language: req.Language})
		}
	}
	if err != nil {
		respondError(ctx, err)
		return
	}

	data := gin.H{
		"kind":       created.Kind,
		"short_code": created.ShortCode,
		"share_url":  created.ShareURL,
		"expires_at": created.ExpiresAt,
	}
	if qr, err := utils.QRCodeDataURL(created.ShareURL); err == nil {
		data["qr_code"] = qr
	}
	utils.Created(ctx, data)
}

func (c *ContentController) createFile(ctx *gin.Context) (*services.Created, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: a file upload is required", services.ErrValidation)
	}
	opts, err := formOptions(ctx)
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %v", services.ErrStorage, err)
	}
	defer f.Close()

	return c.creator.CreateFile(ctx.Request.Context(), caller(ctx), services.FileInput{
		Options:  opts,
		Name:     fh.Filename,
		Size:     fh.Size,
		MimeType: partMimeType(fh),
		Body:     f,
	})
}

// formOptions reads the shared options from multipart fields; blank fields are unset.
func formOptions(ctx *gin.Context) (services.Options, error) {
	opts := services.Options{
		CustomSlug: strings.TrimSpace(ctx.PostForm("custom_slug")),
		Password:   ctx.PostForm("password"),
		Title:      ctx.PostForm("title"),
	}
	if v := strings.TrimSpace(ctx.PostForm("expires_at")); v != "" {
		at, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, fmt.Errorf("%w: expires_at must be an RFC 3339 timestamp", services.ErrValidation)
		}
		opts.ExpiresAt = &at
	}
	if v := strings.TrimSpace(ctx.PostForm("expires_in_days")); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("%w: expires_in_days must be a whole number", services.ErrValidation)
		}
		opts.ExpiresInDays = &days
	}
	return opts, nil
}

func partMimeType(fh *multipart.FileHeader) string {
	if fh.Header == nil {
		return ""
	}
	return fh.Header.Get("Content-Type")
}

type accessRequest struct {
	Password string `json:"password"`
}

// Access handles a read attempt. Links and pastes are counted here; for files it
// returns metadata with a short-lived download ticket and the download counts.
func (c *ContentController) Access(ctx *gin.Context) {
	kind, err := services.ParseKind(ctx.Param("kind"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	var req accessRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
			return
		}
	}
	ar := services.AccessRequest{Kind: kind, Code: ctx.Param("code"), Password: req.Password}

	if kind != services.KindFile {
		acc, err := c.gate.Access(ctx.Request.Context(), ar)
		if err != nil {
			respondError(ctx, err)
			return
		}
		if acc.PasswordRequired {
			respondPasswordRequired(ctx, kind)
			return
		}
		utils.Success(ctx, acc)
		return
	}

	acc, err := c.gate.Inspect(ctx.Request.Context(), ar)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if acc.PasswordRequired {
		respondPasswordRequired(ctx, kind)
		return
	}
	ticket, err := utils.GenerateDownloadTicket(acc.File.ShortCode, DownloadTicketTTL)
	if err != nil {
		respondError(ctx, fmt.Errorf("issue download ticket: %w", err))
		return
	}
	utils.Success(ctx, gin.H{
		"kind":         kind,
		"file":         acc.File,
		"ticket":       ticket,
		"download_url": "/api/v1/content/file/" + url.PathEscape(acc.File.ShortCode) + "?ticket=" + url.QueryEscape(ticket),
	})
}

// Download streams a file. Gated files need a ticket from Access or the password.
func (c *ContentController) Download(ctx *gin.Context) {
	code := ctx.Param("code")
	ar := services.AccessRequest{
		Kind:     services.KindFile,
		Code:     code,
		Password: ctx.Query("password"),
		Unlocked: utils.VerifyDownloadTicket(ctx.Query("ticket"), code),
	}

	acc, err := c.gate.Inspect(ctx.Request.Context(), ar)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if acc.PasswordRequired {
		respondPasswordRequired(ctx, services.KindFile)
		return
	}
	path, err := c.store.GetPath(acc.File.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			err = services.ErrNotFound
		}
		respondError(ctx, err)
		return
	}

	acc, err = c.gate.Access(ctx.Request.Context(), ar)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if acc.File.MimeType != "" {
		ctx.Header("Content-Type", acc.File.MimeType)
	}
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.FileAttachment(path, acc.File.OriginalName)
}

// Redirect follows an open short link. Protected links fall through to the web app,
// which asks for the password.
func (c *ContentController) Redirect(ctx *gin.Context) {
	acc, err := c.gate.Access(ctx.Request.Context(), services.AccessRequest{Kind: services.KindURL, Code: ctx.Param("code")})
	if err != nil {
		respondError(ctx, err)
		return
	}
	if acc.PasswordRequired {
		serveApp(ctx)
		return
	}
	ctx.Redirect(http.StatusFound, acc.URL.OriginalURL)
}

// Mine lists the caller's own items.
func (c *ContentController) Mine(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	items, err := c.creator.ListMine(ctx.Request.Context(), user.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, items)
}

// Delete removes one of the caller's own items.
func (c *ContentController) Delete(ctx *gin.Context) {
	kind, err := services.ParseKind(ctx.Param("kind"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	user := middleware.CurrentUser(ctx)
	if err := c.creator.DeleteMine(ctx.Request.Context(), user.ID, kind, ctx.Param("code")); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}
