package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/sharebox/utils"
)

// AccessRequest is one attempt to read a shared item.
type AccessRequest struct {
	Kind     Kind
	Code     string
	Password string
	// Unlocked skips the password check; set only after a download ticket verified.
	Unlocked bool
}

// Access is the outcome of a non-failing attempt. Exactly one view is set unless
// PasswordRequired is true, in which case none is.
type Access struct {
	Kind             Kind      `json:"kind"`
	PasswordRequired bool      `json:"requiresPassword,omitempty"`
	URL              *URLView  `json:"url,omitempty"`
	Text             *TextView `json:"text,omitempty"`
	File             *FileView `json:"file,omitempty"`
}

// Gate decides whether shared content may be served and counts granted reads.
type Gate struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewGate creates a Gate over the content tables.
func NewGate(db *gorm.DB, log *zap.Logger) *Gate {
	return &Gate{db: db, log: log, now: time.Now}
}

// Access runs the lookup, expiration and password checks, then increments the
// usage counter exactly once and returns the view carrying the new count.
func (g *Gate) Access(ctx context.Context, req AccessRequest) (*Access, error) {
	kt, rec, item, acc, err := g.check(ctx, req)
	if err != nil || acc.PasswordRequired {
		return acc, err
	}

	res := g.db.WithContext(ctx).Model(rec).UpdateColumn(kt.counter, gorm.Expr(kt.counter+" + ?", 1))
	if res.Error != nil {
		return nil, fmt.Errorf("increment %s counter: %w", req.Kind, res.Error)
	}
	if res.RowsAffected == 0 {
		// deleted between lookup and increment
		return nil, ErrNotFound
	}

	kt.fill(rec, item.count+1, acc)
	return acc, nil
}

// Inspect runs the same checks as Access without touching the counter.
func (g *Gate) Inspect(ctx context.Context, req AccessRequest) (*Access, error) {
	kt, rec, item, acc, err := g.check(ctx, req)
	if err != nil || acc.PasswordRequired {
		return acc, err
	}
	kt.fill(rec, item.count, acc)
	return acc, nil
}

func (g *Gate) check(ctx context.Context, req AccessRequest) (kindTable, interface{}, gated, *Access, error) {
	kt, err := tableFor(req.Kind)
	if err != nil {
		return kindTable{}, nil, gated{}, nil, err
	}

	rec := kt.newRecord()
	if err := g.db.WithContext(ctx).Where("short_code = ?", req.Code).First(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return kt, nil, gated{}, nil, ErrNotFound
		}
		return kt, nil, gated{}, nil, fmt.Errorf("load %s %q: %w", req.Kind, req.Code, err)
	}

	item := kt.inspect(rec)
	if item.expiresAt != nil && item.expiresAt.Before(g.now()) {
		return kt, rec, item, nil, ErrExpired
	}

	acc := &Access{Kind: req.Kind}
	if item.passwordHash != nil && !req.Unlocked {
		if req.Password == "" {
			acc.PasswordRequired = true
			return kt, rec, item, acc, nil
		}
		if !utils.CheckPassword(*item.passwordHash, req.Password) {
			g.log.Debug("password mismatch", zap.String("kind", string(req.Kind)), zap.String("code", req.Code))
			return kt, rec, item, nil, ErrInvalidPassword
		}
	}
	return kt, rec, item, acc, nil
}
