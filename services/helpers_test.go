package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/sharebox/config"
	"github.com/cppla/sharebox/models"
	"github.com/cppla/sharebox/storage"
)

type fixture struct {
	db       *gorm.DB
	dir      string
	store    *storage.FileSystemStore
	settings *SettingsService
	policy   *Policy
	gate     *Gate
	creator  *Creator
	admin    *Admin
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.Open(config.AppConfig{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "sharebox.db"),
		LogLevel:   "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	dir := filepath.Join(t.TempDir(), "uploads")
	store := storage.NewFileSystemStore(dir)
	require.NoError(t, store.EnsureDir())

	log := zap.NewNop()
	settings := NewSettingsService(db, nil, log)
	policy := NewPolicy(settings, NewDBCounter(db), log)
	return &fixture{
		db:       db,
		dir:      dir,
		store:    store,
		settings: settings,
		policy:   policy,
		gate:     NewGate(db, log),
		creator:  NewCreator(db, store, policy, log, "http://share.test/", 0),
		admin:    NewAdmin(db, store, settings, log),
	}
}

func (f *fixture) createUser(t *testing.T, email string, admin, approved bool) *models.User {
	t.Helper()
	u := &models.User{Email: email, IsAdmin: admin, IsApproved: approved}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) patchSettings(t *testing.T, patch SettingsPatch) {
	t.Helper()
	_, err := f.settings.Update(context.Background(), patch)
	require.NoError(t, err)
}

func (f *fixture) newURL(t *testing.T, caller Caller, in URLInput) *Created {
	t.Helper()
	if in.URL == "" {
		in.URL = "https://example.com/some/page"
	}
	created, err := f.creator.CreateURL(context.Background(), caller, in)
	require.NoError(t, err)
	return created
}

func (f *fixture) newText(t *testing.T, caller Caller, in TextInput) *Created {
	t.Helper()
	if in.Content == "" {
		in.Content = "hello"
	}
	created, err := f.creator.CreateText(context.Background(), caller, in)
	require.NoError(t, err)
	return created
}

func (f *fixture) newFile(t *testing.T, caller Caller, name, body string, opts Options) *Created {
	t.Helper()
	created, err := f.creator.CreateFile(context.Background(), caller, FileInput{
		Options: opts,
		Name:    name,
		Size:    int64(len(body)),
		Body:    strings.NewReader(body),
	})
	require.NoError(t, err)
	return created
}

func ptr[T any](v T) *T {
	return &v
}
