package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/sharebox/models"
)

func TestCreateURLReturnsShareURL(t *testing.T) {
	f := newFixture(t)
	created := f.newURL(t, Anonymous("10.0.0.1"), URLInput{URL: "https://example.com", Options: Options{Title: "<b>Docs</b> & more"}})

	assert.Equal(t, KindURL, created.Kind)
	assert.Len(t, created.ShortCode, 8)
	assert.Equal(t, "http://share.test/url/"+created.ShortCode, created.ShareURL)
	assert.Nil(t, created.ExpiresAt)

	var row models.Url
	require.NoError(t, f.db.Where("short_code = ?", created.ShortCode).First(&row).Error)
	assert.Equal(t, "Docs & more", row.Title)
	assert.Nil(t, row.PasswordHash)
	assert.Nil(t, row.UserID)
}

func TestCreateURLValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, raw := range []string{"", "example.com", "ftp://example.com/file", "https://", "https://example.com/" + strings.Repeat("a", 2048)} {
		_, err := f.creator.CreateURL(ctx, Anonymous("10.0.0.1"), URLInput{URL: raw})
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func TestCustomSlugTakenIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := Anonymous("10.0.0.1")

	first := f.newURL(t, caller, URLInput{Options: Options{CustomSlug: "my-link"}})
	assert.Equal(t, "my-link", first.ShortCode)

	for i := 0; i < 2; i++ {
		_, err := f.creator.CreateURL(ctx, caller, URLInput{URL: "https://other.example", Options: Options{CustomSlug: "my-link"}})
		assert.ErrorIs(t, err, ErrSlugTaken)
	}

	var n int64
	require.NoError(t, f.db.Model(&models.Url{}).Where("short_code = ?", "my-link").Count(&n).Error)
	assert.Equal(t, int64(1), n)

	// slugs are unique per kind only
	text := f.newText(t, caller, TextInput{Options: Options{CustomSlug: "my-link"}})
	assert.Equal(t, "my-link", text.ShortCode)
}

func TestCustomSlugTakenForFilesLeavesNoBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.newFile(t, Anonymous("10.0.0.1"), "a.txt", "first", Options{CustomSlug: "shared"})

	_, err := f.creator.CreateFile(ctx, Anonymous("10.0.0.1"), FileInput{
		Options: Options{CustomSlug: "shared"},
		Name:    "b.txt",
		Size:    6,
		Body:    strings.NewReader("second"),
	})
	assert.ErrorIs(t, err, ErrSlugTaken)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCustomSlugClaimedByConcurrentUpload(t *testing.T) {
	f := newFixture(t)
	// bytes written by an upload that has not inserted its row yet
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "racing.txt"), []byte("winner"), 0o644))

	_, err := f.creator.CreateFile(context.Background(), Anonymous("10.0.0.1"), FileInput{
		Options: Options{CustomSlug: "racing"},
		Name:    "mine.txt",
		Size:    5,
		Body:    strings.NewReader("loser"),
	})
	assert.ErrorIs(t, err, ErrSlugTaken)

	b, err := os.ReadFile(filepath.Join(f.dir, "racing.txt"))
	require.NoError(t, err)
	assert.Equal(t, "winner", string(b))
	var n int64
	require.NoError(t, f.db.Model(&models.File{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCustomSlugFormat(t *testing.T) {
	f := newFixture(t)
	for _, slug := range []string{"ab", "has space", "slash/y", strings.Repeat("x", 65)} {
		_, err := f.creator.CreateURL(context.Background(), Anonymous("10.0.0.1"), URLInput{URL: "https://example.com", Options: Options{CustomSlug: slug}})
		assert.ErrorIs(t, err, ErrValidation, slug)
	}
}

func TestPasswordIsHashed(t *testing.T) {
	f := newFixture(t)
	created := f.newText(t, Anonymous("10.0.0.1"), TextInput{Options: Options{Password: "secret"}})

	var row models.Text
	require.NoError(t, f.db.Where("short_code = ?", created.ShortCode).First(&row).Error)
	require.NotNil(t, row.PasswordHash)
	assert.NotEqual(t, "secret", *row.PasswordHash)
	assert.True(t, strings.HasPrefix(*row.PasswordHash, "$2"))
}

func TestExpiration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.creator.now = func() time.Time { return fixed }

	created, err := f.creator.CreateText(ctx, Anonymous("10.0.0.1"), TextInput{Content: "x", Options: Options{ExpiresInDays: ptr(7)}})
	require.NoError(t, err)
	require.NotNil(t, created.ExpiresAt)
	assert.True(t, created.ExpiresAt.Equal(fixed.AddDate(0, 0, 7)))

	past := fixed.Add(-time.Minute)
	_, err = f.creator.CreateText(ctx, Anonymous("10.0.0.1"), TextInput{Content: "x", Options: Options{ExpiresAt: &past}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.creator.CreateText(ctx, Anonymous("10.0.0.1"), TextInput{Content: "x", Options: Options{ExpiresInDays: ptr(0)}})
	assert.ErrorIs(t, err, ErrValidation)

	future := fixed.Add(time.Hour)
	_, err = f.creator.CreateText(ctx, Anonymous("10.0.0.1"), TextInput{Content: "x", Options: Options{ExpiresAt: &future, ExpiresInDays: ptr(1)}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateTextValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.creator.CreateText(ctx, Anonymous("10.0.0.1"), TextInput{Content: "   \n"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.creator.CreateText(ctx, Anonymous("10.0.0.1"), TextInput{Content: "x", Language: "<script>"})
	assert.ErrorIs(t, err, ErrValidation)

	created := f.newText(t, Anonymous("10.0.0.1"), TextInput{Content: "  keep <b>verbatim</b>  "})
	var row models.Text
	require.NoError(t, f.db.Where("short_code = ?", created.ShortCode).First(&row).Error)
	assert.Equal(t, "  keep <b>verbatim</b>  ", row.Content)
	assert.Equal(t, "plaintext", row.Language)
}

func TestCreateFileStoresBytesUnderCode(t *testing.T) {
	f := newFixture(t)
	created := f.newFile(t, Anonymous("10.0.0.1"), "Report.PDF", "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n", Options{})

	var row models.File
	require.NoError(t, f.db.Where("short_code = ?", created.ShortCode).First(&row).Error)
	assert.Equal(t, created.ShortCode+".pdf", row.StoredName)
	assert.Equal(t, "Report.PDF", row.OriginalName)
	assert.Equal(t, "application/pdf", row.MimeType)
	assert.Equal(t, int64(len("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")), row.Size)

	data, err := os.ReadFile(filepath.Join(f.dir, row.StoredName))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n", string(data))
}

func TestCreateFileKeepsClientMimeType(t *testing.T) {
	f := newFixture(t)
	created, err := f.creator.CreateFile(context.Background(), Anonymous("10.0.0.1"), FileInput{
		Name:     "data.csv",
		Size:     -1,
		MimeType: "text/csv",
		Body:     strings.NewReader("a,b\n1,2\n"),
	})
	require.NoError(t, err)

	var row models.File
	require.NoError(t, f.db.Where("short_code = ?", created.ShortCode).First(&row).Error)
	assert.Equal(t, "text/csv", row.MimeType)
	assert.Equal(t, int64(8), row.Size)
}

func TestCreateFileRejectsEmpty(t *testing.T) {
	f := newFixture(t)
	_, err := f.creator.CreateFile(context.Background(), Anonymous("10.0.0.1"), FileInput{Name: "empty.txt", Size: -1, Body: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrValidation)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateFileTooLarge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.patchSettings(t, SettingsPatch{AnonMaxFileBytes: ptr(int64(10))})

	// declared size over the limit
	_, err := f.creator.CreateFile(ctx, Anonymous("10.0.0.1"), FileInput{Name: "big.bin", Size: 11, Body: strings.NewReader(strings.Repeat("x", 11))})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// undeclared size caught by the limited copy
	_, err = f.creator.CreateFile(ctx, Anonymous("10.0.0.1"), FileInput{Name: "big.bin", Size: -1, Body: strings.NewReader(strings.Repeat("x", 50))})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var n int64
	require.NoError(t, f.db.Model(&models.File{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestOwnerListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.createUser(t, "owner@example.com", false, true)
	other := f.createUser(t, "other@example.com", false, true)
	caller := Caller{User: owner, IP: "10.0.0.1"}

	link := f.newURL(t, caller, URLInput{})
	f.newText(t, caller, TextInput{})
	file := f.newFile(t, caller, "a.txt", "bytes", Options{})
	f.newURL(t, Caller{User: other, IP: "10.0.0.2"}, URLInput{})

	mine, err := f.creator.ListMine(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine.URLs, 1)
	assert.Len(t, mine.Texts, 1)
	assert.Len(t, mine.Files, 1)

	assert.ErrorIs(t, f.creator.DeleteMine(ctx, other.ID, KindURL, link.ShortCode), ErrNotFound)
	require.NoError(t, f.creator.DeleteMine(ctx, owner.ID, KindURL, link.ShortCode))
	_, err = f.gate.Access(ctx, AccessRequest{Kind: KindURL, Code: link.ShortCode})
	assert.ErrorIs(t, err, ErrNotFound)

	stored := mine.Files[0].StoredName
	require.NoError(t, f.creator.DeleteMine(ctx, owner.ID, KindFile, file.ShortCode))
	_, err = os.Stat(filepath.Join(f.dir, stored))
	assert.True(t, os.IsNotExist(err))
}
