package panel

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"strings"
)

//go:embed web/*
var content embed.FS

// Handler serves the dashboard. A non-empty dir that exists on disk takes
// precedence over the embedded page, which makes editing the page possible
// without rebuilding. Unknown files get a plain 404.
func Handler(dir string) http.Handler {
	assets := embedded()
	if dir != "" {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			assets = os.DirFS(dir)
		}
	}
	files := http.FileServerFS(assets)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		if name := strings.Trim(r.URL.Path, "/"); name != "" {
			if _, err := fs.Stat(assets, name); err != nil {
				http.NotFound(w, r)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}

func embedded() fs.FS {
	sub, err := fs.Sub(content, "web")
	if err != nil {
		// Only possible if the go:embed pattern above changes.
		panic("panel: " + err.Error())
	}
	return sub
}
