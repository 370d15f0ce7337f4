package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/sharebox/services"
	"github.com/cppla/sharebox/utils"
)

type errorMapping struct {
	target  error
	status  int
	code    int
	message string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{services.ErrNotFound, http.StatusNotFound, 40401, "not found"},
	{services.ErrExpired, http.StatusGone, 41001, "this content has expired"},
	{services.ErrInvalidPassword, http.StatusUnauthorized, 40111, "incorrect password"},
	{services.ErrUnauthorized, http.StatusUnauthorized, 40100, "authentication required"},
	{services.ErrSlugTaken, http.StatusBadRequest, 40009, "custom link already exists"},
	{services.ErrSelfLockout, http.StatusBadRequest, 40010, "you cannot remove your own admin access or account"},
	{services.ErrAnonymousCreationDisabled, http.StatusBadRequest, 40011, "anonymous creation is disabled, please sign in"},
	{services.ErrFileTooLarge, http.StatusBadRequest, 40012, "file is too large"},
	{services.ErrTextTooLarge, http.StatusBadRequest, 40013, "text is too large"},
	{services.ErrQuotaExceeded, http.StatusTooManyRequests, 42902, "daily limit reached"},
	{services.ErrValidation, http.StatusBadRequest, 40001, "invalid request"},
}

// respondError translates service errors into the JSON envelope. Validation
// errors carry their detail; anything unrecognised is logged and hidden.
func respondError(ctx *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.message
		if m.target == services.ErrValidation || m.target == services.ErrQuotaExceeded {
			message = err.Error()
		}
		utils.Error(ctx, m.status, m.code, message)
		return
	}
	utils.Logger.Error("request failed",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.FullPath()),
		zap.Error(err),
	)
	utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
}

// respondPasswordRequired signals that the item exists but needs a password.
func respondPasswordRequired(ctx *gin.Context, kind services.Kind) {
	utils.Respond(ctx, http.StatusUnauthorized, 40110, "password required", gin.H{
		"kind":             kind,
		"requiresPassword": true,
	})
}
