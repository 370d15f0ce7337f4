package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/sharebox/models"
)

// Caller identifies who is creating content.
type Caller struct {
	User *models.User
	IP   string
}

// Anonymous builds a caller without a session.
func Anonymous(ip string) Caller {
	return Caller{IP: ip}
}

// UserID returns the owning user for new content, or nil for anonymous callers.
func (c Caller) UserID() *uint {
	if c.User == nil {
		return nil
	}
	id := c.User.ID
	return &id
}

// Registered reports whether the caller gets the registered limits. Unapproved
// accounts are treated as anonymous while approval is required.
func (c Caller) Registered(settings *models.Settings) bool {
	if c.User == nil {
		return false
	}
	return c.User.IsAdmin || c.User.IsApproved || !settings.RequireApproval
}

// Subject is the quota counter identity. Callers that do not get the registered
// limits share the anonymous bucket of their address.
func (c Caller) Subject(registered bool) string {
	if c.User != nil && registered {
		return "user:" + strconv.FormatUint(uint64(c.User.ID), 10)
	}
	return "ip:" + c.IP
}

// classLimits are the settings that apply to one caller class and kind.
type classLimits struct {
	allowed  bool
	perDay   int
	maxBytes int64
}

func limitsFor(s *models.Settings, kind Kind, registered bool) classLimits {
	switch kind {
	case KindURL:
		if registered {
			return classLimits{allowed: true, perDay: s.UserURLsPerDay}
		}
		return classLimits{allowed: s.AllowAnonURLs, perDay: s.AnonURLsPerDay}
	case KindText:
		if registered {
			return classLimits{allowed: true, perDay: s.UserTextsPerDay, maxBytes: s.UserMaxTextBytes}
		}
		return classLimits{allowed: s.AllowAnonTexts, perDay: s.AnonTextsPerDay, maxBytes: s.AnonMaxTextBytes}
	case KindFile:
		if registered {
			return classLimits{allowed: true, perDay: s.UserFilesPerDay, maxBytes: s.UserMaxFileBytes}
		}
		return classLimits{allowed: s.AllowAnonFiles, perDay: s.AnonFilesPerDay, maxBytes: s.AnonMaxFileBytes}
	}
	return classLimits{}
}

// Policy gates content creation on settings and daily quotas.
type Policy struct {
	settings *SettingsService
	counter  Counter
	log      *zap.Logger
	now      func() time.Time
}

// NewPolicy creates a Policy.
func NewPolicy(settings *SettingsService, counter Counter, log *zap.Logger) *Policy {
	return &Policy{settings: settings, counter: counter, log: log, now: time.Now}
}

// Check decides whether caller may create one more item of kind with the given
// payload size. Sizes are ignored for links; a size below zero means unknown.
// Check and Record are not atomic: concurrent creations may overshoot a quota slightly.
func (p *Policy) Check(ctx context.Context, caller Caller, kind Kind, size int64) error {
	settings, err := p.settings.Get(ctx)
	if err != nil {
		return err
	}
	registered := caller.Registered(settings)
	limits := limitsFor(settings, kind, registered)

	if !limits.allowed {
		return ErrAnonymousCreationDisabled
	}
	if limits.maxBytes > 0 && size > limits.maxBytes {
		switch kind {
		case KindFile:
			return ErrFileTooLarge
		case KindText:
			return ErrTextTooLarge
		}
	}
	if limits.perDay <= 0 {
		return nil
	}

	used, err := p.counter.Count(ctx, p.key(caller.Subject(registered), kind))
	if err != nil {
		return err
	}
	if used >= int64(limits.perDay) {
		return fmt.Errorf("%w: %d %s items per day", ErrQuotaExceeded, limits.perDay, kind)
	}
	return nil
}

// MaxBytes returns the payload cap for caller and kind; zero or less means uncapped.
func (p *Policy) MaxBytes(ctx context.Context, caller Caller, kind Kind) (int64, error) {
	settings, err := p.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	return limitsFor(settings, kind, caller.Registered(settings)).maxBytes, nil
}

// Record counts one successful creation against the caller's quota.
func (p *Policy) Record(ctx context.Context, caller Caller, kind Kind) error {
	settings, err := p.settings.Get(ctx)
	if err != nil {
		return err
	}
	_, err = p.counter.Incr(ctx, p.key(caller.Subject(caller.Registered(settings)), kind))
	return err
}

func (p *Policy) key(subject string, kind Kind) QuotaKey {
	return QuotaKey{Day: DayOf(p.now()), Subject: subject, Kind: kind}
}
