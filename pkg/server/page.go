package server

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// pageHandler serves the embedded page and its assets. Unknown paths get a
// JSON 404 rather than the page, since the page does no client-side routing.
type pageHandler struct {
	fsys   fs.FS
	static http.Handler
}

func newPageHandler(fsys fs.FS) http.Handler {
	return &pageHandler{fsys: fsys, static: http.FileServerFS(fsys)}
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := path.Clean(r.URL.Path)
	if urlPath == "/" || urlPath == "." {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.static.ServeHTTP(w, r)
		return
	}

	name := strings.TrimPrefix(urlPath, "/")
	if info, err := fs.Stat(h.fsys, name); err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, errorBody{Error: "Not found"})
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.static.ServeHTTP(w, r)
}
