package services

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/sharebox/models"
)

func TestAnonymousCreationDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.patchSettings(t, SettingsPatch{AllowAnonURLs: ptr(false), AllowAnonFiles: ptr(false)})

	_, err := f.creator.CreateURL(ctx, Anonymous("10.0.0.1"), URLInput{URL: "https://example.com"})
	assert.ErrorIs(t, err, ErrAnonymousCreationDisabled)
	_, err = f.creator.CreateFile(ctx, Anonymous("10.0.0.1"), FileInput{Name: "a.txt", Size: 1, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrAnonymousCreationDisabled)

	// texts remain open, and registered users are unaffected
	f.newText(t, Anonymous("10.0.0.1"), TextInput{})
	user := f.createUser(t, "user@example.com", false, true)
	f.newURL(t, Caller{User: user, IP: "10.0.0.1"}, URLInput{})
}

func TestQuotaExceeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.patchSettings(t, SettingsPatch{AnonURLsPerDay: ptr(2)})

	f.newURL(t, Anonymous("10.0.0.1"), URLInput{})
	f.newURL(t, Anonymous("10.0.0.1"), URLInput{})
	_, err := f.creator.CreateURL(ctx, Anonymous("10.0.0.1"), URLInput{URL: "https://example.com"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// other addresses and kinds have their own windows
	f.newURL(t, Anonymous("10.0.0.2"), URLInput{})
	f.newText(t, Anonymous("10.0.0.1"), TextInput{})

	var n int64
	require.NoError(t, f.db.Model(&models.Url{}).Count(&n).Error)
	assert.Equal(t, int64(3), n)
}

func TestQuotaZeroIsUncapped(t *testing.T) {
	f := newFixture(t)
	f.patchSettings(t, SettingsPatch{AnonTextsPerDay: ptr(0)})
	for i := 0; i < 5; i++ {
		f.newText(t, Anonymous("10.0.0.1"), TextInput{})
	}
}

func TestTextTooLarge(t *testing.T) {
	f := newFixture(t)
	f.patchSettings(t, SettingsPatch{AnonMaxTextBytes: ptr(int64(4))})

	_, err := f.creator.CreateText(context.Background(), Anonymous("10.0.0.1"), TextInput{Content: "hello"})
	assert.ErrorIs(t, err, ErrTextTooLarge)
	f.newText(t, Anonymous("10.0.0.1"), TextInput{Content: "four"})
}

func TestPendingUserUsesAnonymousLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.patchSettings(t, SettingsPatch{RequireApproval: ptr(true), AllowAnonURLs: ptr(false)})
	settings, err := f.settings.Get(ctx)
	require.NoError(t, err)

	pending := f.createUser(t, "pending@example.com", false, false)
	caller := Caller{User: pending, IP: "10.0.0.1"}
	assert.False(t, caller.Registered(settings))
	assert.Equal(t, "ip:10.0.0.1", caller.Subject(caller.Registered(settings)))

	_, err = f.creator.CreateURL(ctx, caller, URLInput{URL: "https://example.com"})
	assert.ErrorIs(t, err, ErrAnonymousCreationDisabled)

	admin := f.createUser(t, "admin@example.com", true, false)
	assert.True(t, Caller{User: admin}.Registered(settings))
}

func TestCallerSubject(t *testing.T) {
	assert.Equal(t, "ip:192.0.2.4", Anonymous("192.0.2.4").Subject(false))
	assert.Nil(t, Anonymous("192.0.2.4").UserID())

	u := &models.User{ID: 42}
	c := Caller{User: u, IP: "192.0.2.4"}
	assert.Equal(t, "user:42", c.Subject(true))
	assert.Equal(t, "ip:192.0.2.4", c.Subject(false))
	require.NotNil(t, c.UserID())
	assert.Equal(t, uint(42), *c.UserID())
}

func TestPendingUserSharesAddressQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.patchSettings(t, SettingsPatch{RequireApproval: ptr(true), AnonTextsPerDay: ptr(1)})

	pending := f.createUser(t, "pending@example.com", false, false)
	f.newText(t, Anonymous("10.0.0.9"), TextInput{})

	_, err := f.creator.CreateText(ctx, Caller{User: pending, IP: "10.0.0.9"}, TextInput{Content: "again"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	used, err := f.policy.counter.Count(ctx, f.policy.key("user:"+strconv.FormatUint(uint64(pending.ID), 10), KindText))
	require.NoError(t, err)
	assert.Zero(t, used)
}
