// Package web serves the embedded task manager page.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var static embed.FS

func Handler() http.Handler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// embed guarantees the directory exists
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
