package services

import (
	"fmt"
	"time"

	"github.com/cppla/sharebox/models"
)

// Kind names one of the shareable content types.
type Kind string

const (
	KindURL  Kind = "url"
	KindText Kind = "text"
	KindFile Kind = "file"
)

// Kinds lists every content kind.
var Kinds = []Kind{KindURL, KindText, KindFile}

// ParseKind validates a kind taken from a request path.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindURL, KindText, KindFile:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown content kind %q", ErrValidation, s)
	}
}

// URLView is what a granted link access reveals.
type URLView struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Clicks      int64      `json:"clicks"`
}

// TextView is what a granted paste access reveals.
type TextView struct {
	ShortCode string     `json:"short_code"`
	Content   string     `json:"content"`
	Title     string     `json:"title"`
	Language  string     `json:"language"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Views     int64      `json:"views"`
}

// FileView is the metadata handed to the download step.
type FileView struct {
	ShortCode    string     `json:"short_code"`
	OriginalName string     `json:"original_name"`
	StoredName   string     `json:"-"`
	Size         int64      `json:"size"`
	MimeType     string     `json:"mime_type"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at"`
	Downloads    int64      `json:"downloads"`
}

// gated is the kind-independent part of a record the gate inspects.
type gated struct {
	id           uint
	passwordHash *string
	expiresAt    *time.Time
	count        int64
}

// kindTable binds a kind to its table, counter column and view.
type kindTable struct {
	counter   string
	newRecord func() interface{}
	inspect   func(rec interface{}) gated
	// fill stores the view of rec with the given counter value into acc.
	fill func(rec interface{}, count int64, acc *Access)
}

var kindTables = map[Kind]kindTable{
	KindURL: {
		counter:   "clicks",
		newRecord: func() interface{} { return &models.Url{} },
		inspect: func(rec interface{}) gated {
			u := rec.(*models.Url)
			return gated{id: u.ID, passwordHash: u.PasswordHash, expiresAt: u.ExpiresAt, count: u.Clicks}
		},
		fill: func(rec interface{}, count int64, acc *Access) {
			u := rec.(*models.Url)
			acc.URL = &URLView{
				ShortCode:   u.ShortCode,
				OriginalURL: u.OriginalURL,
				Title:       u.Title,
				CreatedAt:   u.CreatedAt,
				ExpiresAt:   u.ExpiresAt,
				Clicks:      count,
			}
		},
	},
	KindText: {
		counter:   "views",
		newRecord: func() interface{} { return &models.Text{} },
		inspect: func(rec interface{}) gated {
			t := rec.(*models.Text)
			return gated{id: t.ID, passwordHash: t.PasswordHash, expiresAt: t.ExpiresAt, count: t.Views}
		},
		fill: func(rec interface{}, count int64, acc *Access) {
			t := rec.(*models.Text)
			acc.Text = &TextView{
				ShortCode: t.ShortCode,
				Content:   t.Content,
				Title:     t.Title,
				Language:  t.Language,
				CreatedAt: t.CreatedAt,
				ExpiresAt: t.ExpiresAt,
				Views:     count,
			}
		},
	},
	KindFile: {
		counter:   "downloads",
		newRecord: func() interface{} { return &models.File{} },
		inspect: func(rec interface{}) gated {
			f := rec.(*models.File)
			return gated{id: f.ID, passwordHash: f.PasswordHash, expiresAt: f.ExpiresAt, count: f.Downloads}
		},
		fill: func(rec interface{}, count int64, acc *Access) {
			f := rec.(*models.File)
			acc.File = &FileView{
				ShortCode:    f.ShortCode,
				OriginalName: f.OriginalName,
				StoredName:   f.StoredName,
				Size:         f.Size,
				MimeType:     f.MimeType,
				CreatedAt:    f.CreatedAt,
				ExpiresAt:    f.ExpiresAt,
				Downloads:    count,
			}
		},
	},
}

func tableFor(kind Kind) (kindTable, error) {
	kt, ok := kindTables[kind]
	if !ok {
		return kindTable{}, fmt.Errorf("%w: unknown content kind %q", ErrValidation, kind)
	}
	return kt, nil
}
