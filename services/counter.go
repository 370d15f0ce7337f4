package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/sharebox/models"
)

// QuotaKey identifies one fixed daily window.
type QuotaKey struct {
	Day     string
	Subject string
	Kind    Kind
}

// Counter tracks how many items a subject created per kind and day.
type Counter interface {
	Count(ctx context.Context, key QuotaKey) (int64, error)
	Incr(ctx context.Context, key QuotaKey) (int64, error)
}

// DayOf formats t as the counter window it falls in.
func DayOf(t time.Time) string {
	return t.Format("20060102")
}

// endOfDay returns local midnight after the day named by key.
func endOfDay(day string) time.Time {
	start, err := time.ParseInLocation("20060102", day, time.Local)
	if err != nil {
		start = time.Now()
	}
	y, m, d := start.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.Local)
}

// RedisCounter keeps windows as Redis keys that expire when the day ends.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a counter on client.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) key(k QuotaKey) string {
	return "quota:" + k.Day + ":" + string(k.Kind) + ":" + k.Subject
}

// Count returns the current value; a missing key counts as zero.
func (c *RedisCounter) Count(ctx context.Context, k QuotaKey) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := c.client.Get(ctx, c.key(k)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota counter: %w", err)
	}
	return n, nil
}

// Incr bumps the window and makes it expire at the end of its day.
func (c *RedisCounter) Incr(ctx context.Context, k QuotaKey) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	key := c.key(k)
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, endOfDay(k.Day))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment quota counter: %w", err)
	}
	return incr.Val(), nil
}

// DBCounter keeps windows as QuotaUsage rows.
type DBCounter struct {
	db *gorm.DB
}

// NewDBCounter creates a counter on db.
func NewDBCounter(db *gorm.DB) *DBCounter {
	return &DBCounter{db: db}
}

// Count returns the current value; a missing row counts as zero.
func (c *DBCounter) Count(ctx context.Context, k QuotaKey) (int64, error) {
	var usage models.QuotaUsage
	err := c.db.WithContext(ctx).
		Where("day = ? AND subject = ? AND kind = ?", k.Day, k.Subject, string(k.Kind)).
		First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota usage: %w", err)
	}
	return usage.Count, nil
}

// Incr upserts the window row with count + 1.
func (c *DBCounter) Incr(ctx context.Context, k QuotaKey) (int64, error) {
	db := c.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}, {Name: "subject"}, {Name: "kind"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
	}).Create(&models.QuotaUsage{Day: k.Day, Subject: k.Subject, Kind: string(k.Kind), Count: 1}).Error
	if err != nil {
		return 0, fmt.Errorf("increment quota usage: %w", err)
	}
	return c.Count(ctx, k)
}

// NewCounter picks the backend named by the configuration. Redis is used only
// when requested and a client is available.
func NewCounter(backend string, db *gorm.DB, rc *redis.Client) Counter {
	if backend == "redis" && rc != nil {
		return NewRedisCounter(rc)
	}
	return NewDBCounter(db)
}
