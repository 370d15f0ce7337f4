package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/sharebox/models"
	"github.com/cppla/sharebox/themes"
	"github.com/cppla/sharebox/utils"
)

const (
	settingsCacheKey = "cache:settings"
	settingsCacheTTL = time.Hour
)

// SettingsPatch is a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	AnonURLsPerDay   *int    `json:"anon_urls_per_day"`
	UserURLsPerDay   *int    `json:"user_urls_per_day"`
	AnonTextsPerDay  *int    `json:"anon_texts_per_day"`
	UserTextsPerDay  *int    `json:"user_texts_per_day"`
	AnonFilesPerDay  *int    `json:"anon_files_per_day"`
	UserFilesPerDay  *int    `json:"user_files_per_day"`
	AnonMaxTextBytes *int64  `json:"anon_max_text_bytes"`
	UserMaxTextBytes *int64  `json:"user_max_text_bytes"`
	AnonMaxFileBytes *int64  `json:"anon_max_file_bytes"`
	UserMaxFileBytes *int64  `json:"user_max_file_bytes"`
	AllowAnonURLs    *bool   `json:"allow_anon_urls"`
	AllowAnonTexts   *bool   `json:"allow_anon_texts"`
	AllowAnonFiles   *bool   `json:"allow_anon_files"`
	RequireApproval  *bool   `json:"require_approval"`
	Theme            *string `json:"theme"`
}

// SettingsService owns the singleton settings row. Reads go through Redis when a client is set.
type SettingsService struct {
	db  *gorm.DB
	rc  *redis.Client
	log *zap.Logger
}

// NewSettingsService creates the service; rc may be nil.
func NewSettingsService(db *gorm.DB, rc *redis.Client, log *zap.Logger) *SettingsService {
	return &SettingsService{db: db, rc: rc, log: log}
}

// Get returns the settings row, creating the default row on first use.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	if cached, ok := s.cached(); ok {
		return cached, nil
	}

	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.store(settings)
	return settings, nil
}

// Theme returns the active theme tokens.
func (s *SettingsService) Theme(ctx context.Context) (themes.Theme, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return themes.Theme{}, err
	}
	return themes.Get(settings.Theme), nil
}

// Update validates and applies patch, then drops the cached copy.
func (s *SettingsService) Update(ctx context.Context, patch SettingsPatch) (*models.Settings, error) {
	updates, err := patch.updates()
	if err != nil {
		return nil, err
	}

	if _, err := s.load(ctx); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		if err := s.db.WithContext(ctx).Model(&models.Settings{ID: models.SettingsID}).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update settings: %w", err)
		}
	}
	s.invalidate()

	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("settings updated", zap.Int("fields", len(updates)))
	return settings, nil
}

// load is the get-or-create on the fixed key. Concurrent first reads both insert
// with ON CONFLICT DO NOTHING, so exactly one row survives.
func (s *SettingsService) load(ctx context.Context) (*models.Settings, error) {
	db := s.db.WithContext(ctx)
	var settings models.Settings
	err := db.First(&settings, models.SettingsID).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	def := models.DefaultSettings()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&def).Error; err != nil {
		return nil, fmt.Errorf("create default settings: %w", err)
	}
	if err := db.First(&settings, models.SettingsID).Error; err != nil {
		return nil, fmt.Errorf("reload settings: %w", err)
	}
	return &settings, nil
}

func (s *SettingsService) cached() (*models.Settings, bool) {
	var settings models.Settings
	if !utils.CacheGetJSON(s.rc, settingsCacheKey, &settings) {
		return nil, false
	}
	return &settings, true
}

func (s *SettingsService) store(settings *models.Settings) {
	utils.CacheSetJSON(s.rc, settingsCacheKey, settings, settingsCacheTTL)
}

func (s *SettingsService) invalidate() {
	utils.CacheDelete(s.rc, settingsCacheKey)
}

func (p SettingsPatch) updates() (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	counts := []struct {
		column string
		value  *int
	}{
		{"anon_urls_per_day", p.AnonURLsPerDay},
		{"user_urls_per_day", p.UserURLsPerDay},
		{"anon_texts_per_day", p.AnonTextsPerDay},
		{"user_texts_per_day", p.UserTextsPerDay},
		{"anon_files_per_day", p.AnonFilesPerDay},
		{"user_files_per_day", p.UserFilesPerDay},
	}
	for _, c := range counts {
		if c.value == nil {
			continue
		}
		if *c.value < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrValidation, c.column)
		}
		updates[c.column] = *c.value
	}

	sizes := []struct {
		column string
		value  *int64
	}{
		{"anon_max_text_bytes", p.AnonMaxTextBytes},
		{"user_max_text_bytes", p.UserMaxTextBytes},
		{"anon_max_file_bytes", p.AnonMaxFileBytes},
		{"user_max_file_bytes", p.UserMaxFileBytes},
	}
	for _, c := range sizes {
		if c.value == nil {
			continue
		}
		if *c.value < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrValidation, c.column)
		}
		updates[c.column] = *c.value
	}

	toggles := []struct {
		column string
		value  *bool
	}{
		{"allow_anon_urls", p.AllowAnonURLs},
		{"allow_anon_texts", p.AllowAnonTexts},
		{"allow_anon_files", p.AllowAnonFiles},
		{"require_approval", p.RequireApproval},
	}
	for _, c := range toggles {
		if c.value != nil {
			updates[c.column] = *c.value
		}
	}

	if p.Theme != nil {
		if _, ok := themes.Lookup(*p.Theme); !ok {
			return nil, fmt.Errorf("%w: unknown theme %q", ErrValidation, *p.Theme)
		}
		updates["theme"] = *p.Theme
	}
	return updates, nil
}
