package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/sharebox/models"
	"github.com/cppla/sharebox/utils"
)

const (
	// ContextUserKey stores the authenticated *models.User inside Gin context.
	ContextUserKey = "current_user"
	// ContextClaimsKey stores the parsed session claims.
	ContextClaimsKey = "session_claims"
	// SessionCookie is the cookie name used when no Authorization header is sent.
	SessionCookie = "session"
)

// Auth resolves session tokens to users. The user row is reloaded on every request
// so flag changes and deletions take effect immediately.
type Auth struct {
	db *gorm.DB
}

// NewAuth creates the session middleware set.
func NewAuth(db *gorm.DB) *Auth {
	return &Auth{db: db}
}

type authFailure struct {
	code    int
	message string
}

var (
	errMissingToken = authFailure{40101, "authentication required"}
	errBadHeader    = authFailure{40102, "invalid authorization header format"}
	errRevoked      = authFailure{40104, "token revoked"}
	errInvalidToken = authFailure{40105, "invalid token"}
	errUnknownUser  = authFailure{40106, "account no longer exists"}
)

// Optional attaches the user when a valid session is presented and lets anonymous requests through.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, fail := a.authenticate(ctx); fail != nil && *fail != errMissingToken {
			utils.Sugar.Debugf("ignoring unusable session path=%s reason=%s", ctx.Request.URL.Path, fail.message)
		}
		ctx.Next()
	}
}

// Required rejects requests without a valid session.
func (a *Auth) Required() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, fail := a.authenticate(ctx); fail != nil {
			utils.Abort(ctx, http.StatusUnauthorized, fail.code, fail.message)
			return
		}
		ctx.Next()
	}
}

// AdminRequired rejects requests whose session does not belong to an admin.
func (a *Auth) AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, fail := a.authenticate(ctx)
		if fail != nil {
			utils.Abort(ctx, http.StatusUnauthorized, fail.code, fail.message)
			return
		}
		if !user.IsAdmin {
			utils.Abort(ctx, http.StatusForbidden, 40301, "admin access required")
			return
		}
		ctx.Next()
	}
}

func (a *Auth) authenticate(ctx *gin.Context) (*models.User, *authFailure) {
	if user := CurrentUser(ctx); user != nil {
		return user, nil
	}

	tokenString, fail := bearerToken(ctx)
	if fail != nil {
		return nil, fail
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, &errInvalidToken
	}
	if utils.IsTokenBlacklisted(claims.ID) {
		return nil, &errRevoked
	}

	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, claims.UserID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Sugar.Errorf("load session user id=%d err=%v", claims.UserID, err)
		}
		return nil, &errUnknownUser
	}

	ctx.Set(ContextUserKey, &user)
	ctx.Set(ContextClaimsKey, claims)
	return &user, nil
}

// bearerToken reads the Authorization header, falling back to the session cookie.
func bearerToken(ctx *gin.Context) (string, *authFailure) {
	if header := ctx.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", &errBadHeader
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie, err := ctx.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", &errMissingToken
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(ctx *gin.Context) *models.User {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// SessionClaims returns the parsed claims of the current session, if any.
func SessionClaims(ctx *gin.Context) *utils.Claims {
	v, ok := ctx.Get(ContextClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.Claims)
	return claims
}
