// Package web holds the browser app served for share links and every non-API page.
package web

import (
	"embed"
	"io/fs"
)

// Index is the app shell.
//
//go:embed index.html
var Index []byte

//go:embed static
var static embed.FS

// Static returns the asset tree mounted under /static.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
