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

const purgeBatch = 100

// Purger periodically deletes expired items and the bytes of expired files.
// Expired items are never served either way; purging only reclaims space.
type Purger struct {
	db       *gorm.DB
	store    storage.Store
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
}

// NewPurger creates a purger; Start launches it.
func NewPurger(db *gorm.DB, store storage.Store, log *zap.Logger, interval time.Duration) *Purger {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Purger{db: db, store: store, log: log, interval: interval, now: time.Now, done: make(chan struct{})}
}

// Start runs the loop in a background goroutine until ctx is cancelled.
func (p *Purger) Start(ctx context.Context) {
	p.log.Info("expired content purge started", zap.Duration("interval", p.interval))
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := p.RunOnce(ctx); err != nil {
					p.log.Error("expired content purge failed", zap.Error(err))
				}
			case <-ctx.Done():
				p.log.Info("expired content purge stopping")
				return
			}
		}
	}()
}

// Wait blocks until the loop has stopped.
func (p *Purger) Wait() {
	<-p.done
}

// RunOnce deletes everything that expired before now and returns the number of rows removed.
func (p *Purger) RunOnce(ctx context.Context) (int64, error) {
	db := p.db.WithContext(ctx)
	now := p.now()
	var removed int64

	for _, model := range []interface{}{&models.Url{}, &models.Text{}} {
		res := db.Where("expires_at IS NOT NULL AND expires_at < ?", now).Delete(model)
		if res.Error != nil {
			return removed, fmt.Errorf("purge %T: %w", model, res.Error)
		}
		removed += res.RowsAffected
	}

	for {
		var files []models.File
		if err := db.Where("expires_at IS NOT NULL AND expires_at < ?", now).Limit(purgeBatch).Find(&files).Error; err != nil {
			return removed, fmt.Errorf("find expired files: %w", err)
		}
		for i := range files {
			err := deleteRecord(ctx, db, p.store, p.log, &files[i])
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return removed, err
			}
			removed++
		}
		if len(files) < purgeBatch {
			break
		}
	}

	if removed > 0 {
		p.log.Info("purged expired content", zap.Int64("removed", removed))
	}
	return removed, nil
}
