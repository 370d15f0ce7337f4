package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/sharebox/models"
	"github.com/cppla/sharebox/storage"
)

const recentLimit = 10

// Counts are the dashboard totals.
type Counts struct {
	Users   int64 `json:"users"`
	Pending int64 `json:"pending"`
	URLs    int64 `json:"urls"`
	Texts   int64 `json:"texts"`
	Files   int64 `json:"files"`
}

// UserSummary is a user row with the number of items it owns per kind.
type UserSummary struct {
	models.User
	URLCount  int64 `json:"url_count"`
	TextCount int64 `json:"text_count"`
	FileCount int64 `json:"file_count"`
}

// ContentSummary is one recent item of any kind.
type ContentSummary struct {
	ID          uint       `json:"id"`
	Kind        Kind       `json:"kind"`
	ShortCode   string     `json:"short_code"`
	Label       string     `json:"label"`
	Count       int64      `json:"count"`
	HasPassword bool       `json:"has_password"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	OwnerEmail  string     `json:"owner_email,omitempty"`
}

// Dashboard is the admin console landing data.
type Dashboard struct {
	Counts      Counts           `json:"counts"`
	RecentUsers []UserSummary    `json:"recent_users"`
	Pending     []models.User    `json:"pending_users"`
	RecentURLs  []ContentSummary `json:"recent_urls"`
	RecentTexts []ContentSummary `json:"recent_texts"`
	RecentFiles []ContentSummary `json:"recent_files"`
}

// UserPatch toggles account flags; nil fields are left unchanged.
type UserPatch struct {
	IsAdmin    *bool `json:"is_admin"`
	IsApproved *bool `json:"is_approved"`
}

// Admin implements moderation over users, content and settings.
type Admin struct {
	db       *gorm.DB
	store    storage.Store
	settings *SettingsService
	log      *zap.Logger
}

// NewAdmin creates the admin service.
func NewAdmin(db *gorm.DB, store storage.Store, settings *SettingsService, log *zap.Logger) *Admin {
	return &Admin{db: db, store: store, settings: settings, log: log}
}

// Dashboard collects totals, the newest users and items, and the approval queue.
func (a *Admin) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := a.db.WithContext(ctx)
	d := &Dashboard{}

	counts := []struct {
		model interface{}
		where string
		out   *int64
	}{
		{&models.User{}, "", &d.Counts.Users},
		{&models.User{}, "is_approved = ?", &d.Counts.Pending},
		{&models.Url{}, "", &d.Counts.URLs},
		{&models.Text{}, "", &d.Counts.Texts},
		{&models.File{}, "", &d.Counts.Files},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, false)
		}
		if err := q.Count(c.out).Error; err != nil {
			return nil, fmt.Errorf("count %T: %w", c.model, err)
		}
	}

	var users []models.User
	if err := db.Order("created_at DESC").Limit(recentLimit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	summaries, err := a.summarize(ctx, users)
	if err != nil {
		return nil, err
	}
	d.RecentUsers = summaries

	d.Pending = []models.User{}
	if err := db.Where("is_approved = ?", false).Order("created_at ASC").Limit(100).Find(&d.Pending).Error; err != nil {
		return nil, fmt.Errorf("pending users: %w", err)
	}

	var urls []models.Url
	if err := db.Preload("User").Order("created_at DESC").Limit(recentLimit).Find(&urls).Error; err != nil {
		return nil, fmt.Errorf("recent urls: %w", err)
	}
	d.RecentURLs = make([]ContentSummary, 0, len(urls))
	for _, u := range urls {
		d.RecentURLs = append(d.RecentURLs, ContentSummary{
			ID: u.ID, Kind: KindURL, ShortCode: u.ShortCode, Label: u.OriginalURL, Count: u.Clicks,
			HasPassword: u.PasswordHash != nil, ExpiresAt: u.ExpiresAt, CreatedAt: u.CreatedAt, OwnerEmail: ownerEmail(u.User),
		})
	}

	var texts []models.Text
	if err := db.Preload("User").Order("created_at DESC").Limit(recentLimit).Find(&texts).Error; err != nil {
		return nil, fmt.Errorf("recent texts: %w", err)
	}
	d.RecentTexts = make([]ContentSummary, 0, len(texts))
	for _, t := range texts {
		label := t.Title
		if label == "" {
			label = t.Language
		}
		d.RecentTexts = append(d.RecentTexts, ContentSummary{
			ID: t.ID, Kind: KindText, ShortCode: t.ShortCode, Label: label, Count: t.Views,
			HasPassword: t.PasswordHash != nil, ExpiresAt: t.ExpiresAt, CreatedAt: t.CreatedAt, OwnerEmail: ownerEmail(t.User),
		})
	}

	var files []models.File
	if err := db.Preload("User").Order("created_at DESC").Limit(recentLimit).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("recent files: %w", err)
	}
	d.RecentFiles = make([]ContentSummary, 0, len(files))
	for _, f := range files {
		d.RecentFiles = append(d.RecentFiles, ContentSummary{
			ID: f.ID, Kind: KindFile, ShortCode: f.ShortCode, Label: f.OriginalName, Count: f.Downloads,
			HasPassword: f.PasswordHash != nil, ExpiresAt: f.ExpiresAt, CreatedAt: f.CreatedAt, OwnerEmail: ownerEmail(f.User),
		})
	}
	return d, nil
}

// summarize attaches per-kind item counts to users with one grouped query per kind.
func (a *Admin) summarize(ctx context.Context, users []models.User) ([]UserSummary, error) {
	out := make([]UserSummary, len(users))
	if len(users) == 0 {
		return out, nil
	}
	ids := make([]uint, len(users))
	index := make(map[uint]int, len(users))
	for i, u := range users {
		ids[i] = u.ID
		index[u.ID] = i
		out[i].User = u
	}

	type row struct {
		UserID uint
		N      int64
	}
	kinds := []struct {
		model interface{}
		set   func(s *UserSummary, n int64)
	}{
		{&models.Url{}, func(s *UserSummary, n int64) { s.URLCount = n }},
		{&models.Text{}, func(s *UserSummary, n int64) { s.TextCount = n }},
		{&models.File{}, func(s *UserSummary, n int64) { s.FileCount = n }},
	}
	for _, k := range kinds {
		var rows []row
		err := a.db.WithContext(ctx).Model(k.model).
			Select("user_id, COUNT(*) AS n").
			Where("user_id IN ?", ids).
			Group("user_id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("count items per user: %w", err)
		}
		for _, r := range rows {
			if i, ok := index[r.UserID]; ok {
				k.set(&out[i], r.N)
			}
		}
	}
	return out, nil
}

// UpdateUser applies patch to target. An admin cannot remove their own admin flag.
func (a *Admin) UpdateUser(ctx context.Context, actorID, targetID uint, patch UserPatch) (*models.User, error) {
	if patch.IsAdmin == nil && patch.IsApproved == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if actorID == targetID && patch.IsAdmin != nil && !*patch.IsAdmin {
		return nil, ErrSelfLockout
	}

	db := a.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	updates := map[string]interface{}{}
	if patch.IsAdmin != nil {
		updates["is_admin"] = *patch.IsAdmin
	}
	if patch.IsApproved != nil {
		updates["is_approved"] = *patch.IsApproved
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := db.First(&user, targetID).Error; err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	a.log.Info("user updated",
		zap.Uint("actor_id", actorID),
		zap.Uint("user_id", targetID),
		zap.Bool("is_admin", user.IsAdmin),
		zap.Bool("is_approved", user.IsApproved),
	)
	return &user, nil
}

// DeleteUser removes target and, through the foreign key cascade, everything it owns.
// Stored bytes of its files are removed afterwards; failures there are only logged.
func (a *Admin) DeleteUser(ctx context.Context, actorID, targetID uint) error {
	return a.deleteUser(ctx, actorID, targetID, false)
}

// RejectUser deletes an account that is still waiting for approval.
func (a *Admin) RejectUser(ctx context.Context, actorID, targetID uint) error {
	return a.deleteUser(ctx, actorID, targetID, true)
}

func (a *Admin) deleteUser(ctx context.Context, actorID, targetID uint, pendingOnly bool) error {
	if actorID == targetID {
		return ErrSelfLockout
	}

	db := a.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if pendingOnly && user.IsApproved {
		return fmt.Errorf("%w: only pending accounts can be rejected", ErrValidation)
	}

	var storedNames []string
	if err := db.Model(&models.File{}).Where("user_id = ?", targetID).Pluck("stored_name", &storedNames).Error; err != nil {
		return fmt.Errorf("collect user files: %w", err)
	}

	res := db.Delete(&models.User{}, targetID)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	for _, name := range storedNames {
		if err := a.store.Delete(name); err != nil {
			a.log.Error("failed to remove stored file of deleted user",
				zap.Uint("user_id", targetID),
				zap.String("stored_name", name),
				zap.Error(err),
			)
		}
	}
	a.log.Info("user deleted",
		zap.Uint("actor_id", actorID),
		zap.Uint("user_id", targetID),
		zap.Bool("rejected", pendingOnly),
		zap.Int("files", len(storedNames)),
	)
	return nil
}

// DeleteContent removes one item by primary key.
func (a *Admin) DeleteContent(ctx context.Context, kind Kind, id uint) error {
	kt, err := tableFor(kind)
	if err != nil {
		return err
	}
	db := a.db.WithContext(ctx)
	rec := kt.newRecord()
	if err := db.First(rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load %s %d: %w", kind, id, err)
	}
	return deleteRecord(ctx, db, a.store, a.log, rec)
}

// Settings returns the singleton settings row.
func (a *Admin) Settings(ctx context.Context) (*models.Settings, error) {
	return a.settings.Get(ctx)
}

// UpdateSettings applies a validated partial update.
func (a *Admin) UpdateSettings(ctx context.Context, patch SettingsPatch) (*models.Settings, error) {
	return a.settings.Update(ctx, patch)
}

func ownerEmail(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.Email
}
