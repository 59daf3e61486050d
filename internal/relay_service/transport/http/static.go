package http

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// staticHandler serves the embedded console. Misses and bare directories
// get an empty 404 instead of FileServer's text body or listing.
func staticHandler(fsys fs.FS) http.Handler {
	files := http.FileServer(http.FS(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "."
		}
		info, err := fs.Stat(fsys, name)
		if err == nil && info.IsDir() {
			info, err = fs.Stat(fsys, path.Join(name, "index.html"))
		}
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		files.ServeHTTP(w, r)
	})
}
