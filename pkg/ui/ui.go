// Package ui embeds the browser page served at the root path.
package ui

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// FS returns the embedded page rooted at the static/ directory.
func FS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// static is embedded at build time; Sub only fails on an invalid name.
		panic(err)
	}
	return sub
}
