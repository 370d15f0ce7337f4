package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/sharebox/middleware"
	"github.com/cppla/sharebox/services"
	"github.com/cppla/sharebox/utils"
)

// AdminController exposes the moderation console. Every route sits behind AdminRequired.
type AdminController struct {
	admin *services.Admin
}

// NewAdminController creates the admin endpoints.
func NewAdminController(admin *services.Admin) *AdminController {
	return &AdminController{admin: admin}
}

// Dashboard returns totals, recent users and items, and the approval queue.
func (a *AdminController) Dashboard(ctx *gin.Context) {
	d, err := a.admin.Dashboard(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, d)
}

// UpdateUser toggles the admin and approval flags of a user.
func (a *AdminController) UpdateUser(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var patch services.UserPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	user, err := a.admin.UpdateUser(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, id, patch)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// DeleteUser removes a user and everything it owns. With ?reject=1 only pending accounts are accepted.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	actor := middleware.CurrentUser(ctx).ID
	var err error
	if reject, _ := strconv.ParseBool(ctx.DefaultQuery("reject", "false")); reject {
		err = a.admin.RejectUser(ctx.Request.Context(), actor, id)
	} else {
		err = a.admin.DeleteUser(ctx.Request.Context(), actor, id)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}

// DeleteContent removes one item by kind and primary key.
func (a *AdminController) DeleteContent(ctx *gin.Context) {
	kind, err := services.ParseKind(ctx.Param("kind"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := a.admin.DeleteContent(ctx.Request.Context(), kind, id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}

// GetSettings returns the deployment settings.
func (a *AdminController) GetSettings(ctx *gin.Context) {
	s, err := a.admin.Settings(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, s)
}

// UpdateSettings applies a partial settings update.
func (a *AdminController) UpdateSettings(ctx *gin.Context) {
	var patch services.SettingsPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	s, err := a.admin.UpdateSettings(ctx.Request.Context(), patch)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, s)
}

func pathID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid id")
		return 0, false
	}
	return uint(id), true
}
