package utils

import (
	"context"
	"time"
)

const captchaTTL = 10 * time.Minute

// redisCaptchaStore implements base64Captcha.Store on Redis so answers survive across instances.
type redisCaptchaStore struct{}

func (redisCaptchaStore) key(id string) string {
	return "captcha:" + id
}

func (s redisCaptchaStore) Set(id string, value string) error {
	rc := GetRedis()
	if rc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return rc.Set(ctx, s.key(id), value, captchaTTL).Err()
}

func (s redisCaptchaStore) Get(id string, clear bool) string {
	rc := GetRedis()
	if rc == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var (
		v   string
		err error
	)
	if clear {
		v, err = rc.GetDel(ctx, s.key(id)).Result()
	} else {
		v, err = rc.Get(ctx, s.key(id)).Result()
	}
	if err != nil {
		return ""
	}
	return v
}

func (s redisCaptchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}
