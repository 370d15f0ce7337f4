package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/sharebox/models"
	"github.com/cppla/sharebox/storage"
	"github.com/cppla/sharebox/utils"
)

const (
	maxURLLength    = 2048
	maxTitleRunes   = 255
	maxCodeAttempts = 5
	sniffLength     = 3072
)

var languagePattern = regexp.MustCompile(`^[A-Za-z0-9+#._-]{1,32}$`)

// Options are the settings every kind accepts.
type Options struct {
	CustomSlug    string
	Password      string
	Title         string
	ExpiresAt     *time.Time
	ExpiresInDays *int
}

// URLInput is a link submission.
type URLInput struct {
	Options
	URL string
}

// TextInput is a paste submission.
type TextInput struct {
	Options
	Content  string
	Language string
}

// FileInput is an upload. Size is the declared length, or below zero when unknown.
type FileInput struct {
	Options
	Name     string
	Size     int64
	MimeType string
	Body     io.Reader
}

// Created is returned for every new item.
type Created struct {
	Kind      Kind       `json:"kind"`
	ShortCode string     `json:"short_code"`
	ShareURL  string     `json:"share_url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MyItems lists the content owned by one user.
type MyItems struct {
	URLs  []models.Url  `json:"urls"`
	Texts []models.Text `json:"texts"`
	Files []models.File `json:"files"`
}

// Creator turns validated submissions into stored content.
type Creator struct {
	db        *gorm.DB
	store     storage.Store
	policy    *Policy
	log       *zap.Logger
	baseURL   string
	maxUpload int64
	now       func() time.Time
}

// NewCreator creates a Creator. maxUpload caps every upload regardless of settings; zero disables it.
func NewCreator(db *gorm.DB, store storage.Store, policy *Policy, log *zap.Logger, baseURL string, maxUpload int64) *Creator {
	return &Creator{
		db:        db,
		store:     store,
		policy:    policy,
		log:       log,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

// CreateURL stores a shortened link.
func (c *Creator) CreateURL(ctx context.Context, caller Caller, in URLInput) (*Created, error) {
	target := strings.TrimSpace(in.URL)
	if err := validateURL(target); err != nil {
		return nil, err
	}
	if err := c.policy.Check(ctx, caller, KindURL, 0); err != nil {
		return nil, err
	}
	expiresAt, hash, err := c.prepare(in.Options)
	if err != nil {
		return nil, err
	}

	code, err := c.insert(ctx, KindURL, in.CustomSlug, true, func(code string) error {
		return c.db.WithContext(ctx).Create(&models.Url{
			ShortCode:    code,
			OriginalURL:  target,
			Title:        utils.SanitizeTitle(in.Title, maxTitleRunes),
			PasswordHash: hash,
			ExpiresAt:    expiresAt,
			UserID:       caller.UserID(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return c.finish(ctx, caller, KindURL, code, expiresAt), nil
}

// CreateText stores a paste. The body is kept verbatim.
func (c *Creator) CreateText(ctx context.Context, caller Caller, in TextInput) (*Created, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: text content is required", ErrValidation)
	}
	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = "plaintext"
	}
	if !languagePattern.MatchString(language) {
		return nil, fmt.Errorf("%w: invalid language %q", ErrValidation, language)
	}
	if err := c.policy.Check(ctx, caller, KindText, int64(len(in.Content))); err != nil {
		return nil, err
	}
	expiresAt, hash, err := c.prepare(in.Options)
	if err != nil {
		return nil, err
	}

	code, err := c.insert(ctx, KindText, in.CustomSlug, true, func(code string) error {
		return c.db.WithContext(ctx).Create(&models.Text{
			ShortCode:    code,
			Content:      in.Content,
			Title:        utils.SanitizeTitle(in.Title, maxTitleRunes),
			Language:     language,
			PasswordHash: hash,
			ExpiresAt:    expiresAt,
			UserID:       caller.UserID(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return c.finish(ctx, caller, KindText, code, expiresAt), nil
}

// CreateFile writes the upload to the byte store as <code><ext> and records it.
// The bytes are removed again when the row cannot be inserted.
func (c *Creator) CreateFile(ctx context.Context, caller Caller, in FileInput) (*Created, error) {
	name := filepath.Base(strings.TrimSpace(in.Name))
	if in.Body == nil || name == "" || name == "." || name == string(filepath.Separator) || in.Size == 0 {
		return nil, fmt.Errorf("%w: a non-empty file is required", ErrValidation)
	}
	if err := c.policy.Check(ctx, caller, KindFile, in.Size); err != nil {
		return nil, err
	}
	limit, err := c.policy.MaxBytes(ctx, caller, KindFile)
	if err != nil {
		return nil, err
	}
	if c.maxUpload > 0 && (limit <= 0 || limit > c.maxUpload) {
		limit = c.maxUpload
	}
	expiresAt, hash, err := c.prepare(in.Options)
	if err != nil {
		return nil, err
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read upload: %v", ErrStorage, err)
	}
	head = head[:n]
	if n == 0 {
		return nil, fmt.Errorf("%w: a non-empty file is required", ErrValidation)
	}
	mimeType := strings.TrimSpace(in.MimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(head).String()
	}
	body := io.MultiReader(bytes.NewReader(head), in.Body)
	ext := strings.ToLower(filepath.Ext(name))

	// Upload bodies cannot be replayed, so a short code collision on insert is not retried.
	code, err := c.insert(ctx, KindFile, in.CustomSlug, false, func(code string) error {
		stored := code + ext
		size, err := c.store.Save(stored, body, limit)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrTooLarge):
				return ErrFileTooLarge
			case errors.Is(err, storage.ErrExist) && strings.TrimSpace(in.CustomSlug) != "":
				// a concurrent upload claimed the slug after the lookup
				return ErrSlugTaken
			}
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		err = c.db.WithContext(ctx).Create(&models.File{
			ShortCode:    code,
			StoredName:   stored,
			OriginalName: utils.SanitizeTitle(name, maxTitleRunes),
			Size:         size,
			MimeType:     mimeType,
			PasswordHash: hash,
			ExpiresAt:    expiresAt,
			UserID:       caller.UserID(),
		}).Error
		if err != nil {
			if rmErr := c.store.Delete(stored); rmErr != nil {
				c.log.Error("failed to remove orphaned upload", zap.String("stored_name", stored), zap.Error(rmErr))
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.finish(ctx, caller, KindFile, code, expiresAt), nil
}

// ListMine returns the newest items owned by userID.
func (c *Creator) ListMine(ctx context.Context, userID uint) (*MyItems, error) {
	db := c.db.WithContext(ctx)
	items := &MyItems{URLs: []models.Url{}, Texts: []models.Text{}, Files: []models.File{}}
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Limit(100).Find(&items.URLs).Error; err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Limit(100).Find(&items.Texts).Error; err != nil {
		return nil, fmt.Errorf("list texts: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Limit(100).Find(&items.Files).Error; err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return items, nil
}

// DeleteMine removes one item the user owns. Items owned by others are reported as not found.
func (c *Creator) DeleteMine(ctx context.Context, userID uint, kind Kind, code string) error {
	kt, err := tableFor(kind)
	if err != nil {
		return err
	}
	db := c.db.WithContext(ctx)
	rec := kt.newRecord()
	if err := db.Where("short_code = ? AND user_id = ?", code, userID).First(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load %s %q: %w", kind, code, err)
	}
	return deleteRecord(ctx, db, c.store, c.log, rec)
}

// prepare resolves the expiration and hashes the password.
func (c *Creator) prepare(opts Options) (*time.Time, *string, error) {
	expiresAt, err := c.resolveExpiry(opts)
	if err != nil {
		return nil, nil, err
	}
	hash, err := utils.HashOptionalPassword(opts.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	return expiresAt, hash, nil
}

// resolveExpiry turns the submitted expiration into an absolute instant at submission time.
func (c *Creator) resolveExpiry(opts Options) (*time.Time, error) {
	now := c.now()
	switch {
	case opts.ExpiresAt != nil && opts.ExpiresInDays != nil:
		return nil, fmt.Errorf("%w: give either expires_at or expires_in_days", ErrValidation)
	case opts.ExpiresAt != nil:
		if !opts.ExpiresAt.After(now) {
			return nil, fmt.Errorf("%w: expiration must be in the future", ErrValidation)
		}
		at := opts.ExpiresAt.UTC()
		return &at, nil
	case opts.ExpiresInDays != nil:
		if *opts.ExpiresInDays <= 0 {
			return nil, fmt.Errorf("%w: expires_in_days must be positive", ErrValidation)
		}
		at := now.AddDate(0, 0, *opts.ExpiresInDays).UTC()
		return &at, nil
	}
	return nil, nil
}

// insert picks a short code and runs persist with it. A duplicate key on a
// custom slug is ErrSlugTaken; on a generated code it is retried when retry is set.
func (c *Creator) insert(ctx context.Context, kind Kind, slug string, retry bool, persist func(code string) error) (string, error) {
	slug = strings.TrimSpace(slug)
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := c.pickCode(ctx, kind, slug)
		if err != nil {
			return "", err
		}
		err = persist(code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			if errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrStorage) || errors.Is(err, ErrSlugTaken) {
				return "", err
			}
			return "", fmt.Errorf("create %s: %w", kind, err)
		}
		if slug != "" {
			return "", ErrSlugTaken
		}
		if !retry {
			break
		}
		c.log.Warn("short code collision on insert", zap.String("kind", string(kind)), zap.String("code", code))
	}
	return "", fmt.Errorf("%w: could not allocate a unique short code", ErrStorage)
}

func (c *Creator) pickCode(ctx context.Context, kind Kind, slug string) (string, error) {
	if slug != "" {
		if !utils.ValidSlug(slug) {
			return "", fmt.Errorf("%w: custom link must be 3-64 letters, digits, '-' or '_'", ErrValidation)
		}
		taken, err := c.codeTaken(ctx, kind, slug)
		if err != nil {
			return "", err
		}
		if taken {
			return "", ErrSlugTaken
		}
		return slug, nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := utils.GenerateShortCode()
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		taken, err := c.codeTaken(ctx, kind, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique short code", ErrStorage)
}

func (c *Creator) codeTaken(ctx context.Context, kind Kind, code string) (bool, error) {
	kt, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var n int64
	if err := c.db.WithContext(ctx).Model(kt.newRecord()).Where("short_code = ?", code).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check short code: %w", err)
	}
	return n > 0, nil
}

func (c *Creator) finish(ctx context.Context, caller Caller, kind Kind, code string, expiresAt *time.Time) *Created {
	if err := c.policy.Record(ctx, caller, kind); err != nil {
		c.log.Warn("failed to record quota usage", zap.String("kind", string(kind)), zap.Error(err))
	}
	c.log.Info("content created",
		zap.String("kind", string(kind)),
		zap.String("code", code),
		zap.String("subject", caller.Subject(caller.User != nil)),
	)
	return &Created{
		Kind:      kind,
		ShortCode: code,
		ShareURL:  c.baseURL + "/" + string(kind) + "/" + code,
		ExpiresAt: expiresAt,
	}
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: url is required", ErrValidation)
	}
	if len(raw) > maxURLLength {
		return fmt.Errorf("%w: url longer than %d characters", ErrValidation, maxURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http or https address", ErrValidation)
	}
	return nil
}

// deleteRecord removes a content row and, for files, its bytes afterwards.
// A failed byte removal is logged and leaves the row deleted.
func deleteRecord(ctx context.Context, db *gorm.DB, store storage.Store, log *zap.Logger, rec interface{}) error {
	res := db.WithContext(ctx).Delete(rec)
	if res.Error != nil {
		return fmt.Errorf("delete content: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	if f, ok := rec.(*models.File); ok {
		if err := store.Delete(f.StoredName); err != nil {
			log.Error("failed to remove stored file", zap.String("stored_name", f.StoredName), zap.Error(err))
		}
	}
	return nil
}
