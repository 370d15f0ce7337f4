package services

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/sharebox/models"
)

func TestSettingsGetCreatesSingleRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettingsService(db, nil, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Get(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var n int64
	require.NoError(t, db.Model(&models.Settings{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	s, err := svc.Get(context.Background())
	require.NoError(t, err)
	def := models.DefaultSettings()
	assert.Equal(t, def.AnonURLsPerDay, s.AnonURLsPerDay)
	assert.Equal(t, def.UserMaxFileBytes, s.UserMaxFileBytes)
	assert.Equal(t, "default", s.Theme)
}

func TestSettingsUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.settings.Update(ctx, SettingsPatch{AnonFilesPerDay: ptr(0), RequireApproval: ptr(true), Theme: ptr("ocean")})
	require.NoError(t, err)
	assert.Zero(t, s.AnonFilesPerDay)
	assert.True(t, s.RequireApproval)
	assert.Equal(t, "ocean", s.Theme)
	assert.Equal(t, models.DefaultSettings().AnonURLsPerDay, s.AnonURLsPerDay)

	theme, err := f.settings.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ocean", theme.Name)
}

func TestSettingsUpdateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.settings.Update(ctx, SettingsPatch{UserURLsPerDay: ptr(-1)})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.settings.Update(ctx, SettingsPatch{AnonMaxTextBytes: ptr(int64(-5))})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.settings.Update(ctx, SettingsPatch{Theme: ptr("neon")})
	assert.ErrorIs(t, err, ErrValidation)

	s, err := f.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings().UserURLsPerDay, s.UserURLsPerDay)
	assert.Equal(t, "default", s.Theme)
}

func TestSettingsCacheInvalidatedOnUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	db := newTestDB(t)
	svc := NewSettingsService(db, rc, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(settingsCacheKey))
	assert.Equal(t, settingsCacheTTL, mr.TTL(settingsCacheKey))

	// a direct write is hidden behind the cache
	require.NoError(t, db.Model(&models.Settings{ID: models.SettingsID}).Update("anon_urls_per_day", 3).Error)
	s, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings().AnonURLsPerDay, s.AnonURLsPerDay)

	s, err = svc.Update(ctx, SettingsPatch{UserURLsPerDay: ptr(7)})
	require.NoError(t, err)
	assert.Equal(t, 3, s.AnonURLsPerDay)
	assert.Equal(t, 7, s.UserURLsPerDay)
	assert.False(t, mr.Exists(settingsCacheKey))

	s, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, s.UserURLsPerDay)
	assert.True(t, mr.Exists(settingsCacheKey))
}

func TestSettingsFallsBackWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	mr.Close()

	svc := NewSettingsService(newTestDB(t), rc, zap.NewNop())
	s, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SettingsID, s.ID)
}
