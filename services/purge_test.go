package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/sharebox/models"
)

func TestPurgeRemovesExpiredContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := Anonymous("10.0.0.1")

	expired := map[Kind]string{
		KindURL:  f.newURL(t, caller, URLInput{}).ShortCode,
		KindText: f.newText(t, caller, TextInput{}).ShortCode,
		KindFile: f.newFile(t, caller, "old.txt", "old bytes", Options{}).ShortCode,
	}
	for kind, code := range expired {
		expireNow(t, f, kind, code)
	}
	var old models.File
	require.NoError(t, f.db.Where("short_code = ?", expired[KindFile]).First(&old).Error)

	future := time.Now().Add(time.Hour)
	live := f.newFile(t, caller, "new.txt", "new bytes", Options{ExpiresAt: &future}).ShortCode
	forever := f.newText(t, caller, TextInput{}).ShortCode

	p := NewPurger(f.db, f.store, zap.NewNop(), time.Minute)
	removed, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	for kind, code := range expired {
		_, err := f.gate.Access(ctx, AccessRequest{Kind: kind, Code: code})
		assert.ErrorIs(t, err, ErrNotFound, kind)
	}
	_, err = os.Stat(filepath.Join(f.dir, old.StoredName))
	assert.True(t, os.IsNotExist(err))

	_, err = f.gate.Access(ctx, AccessRequest{Kind: KindFile, Code: live})
	assert.NoError(t, err)
	_, err = f.gate.Access(ctx, AccessRequest{Kind: KindText, Code: forever})
	assert.NoError(t, err)

	removed, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestPurgerStopsWithContext(t *testing.T) {
	f := newFixture(t)
	p := NewPurger(f.db, f.store, zap.NewNop(), 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("purger did not stop")
	}
}
