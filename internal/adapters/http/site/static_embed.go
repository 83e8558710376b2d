package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static templates content
var siteFS embed.FS

// FS returns an http.FileSystem for the embedded stylesheet and assets.
func FS() http.FileSystem {
	sub, err := fs.Sub(siteFS, "static")
	if err != nil {
		return http.FS(siteFS)
	}
	return http.FS(sub)
}
