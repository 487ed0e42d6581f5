package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// staticFiles serves the frontend from root. Missing files, directories
// without an index and non-GET requests get the JSON 404.
func (s *Server) staticFiles(root string) http.Handler {
	fs := http.FileServer(http.Dir(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if root == "" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			s.handleNotFound(w, r)
			return
		}

		cleanPath := path.Clean("/" + r.URL.Path)
		if strings.Contains(cleanPath, "..") {
			s.handleNotFound(w, r)
			return
		}

		absRoot, err := filepath.Abs(root)
		if err != nil {
			s.handleNotFound(w, r)
			return
		}
		absPath := filepath.Join(absRoot, filepath.FromSlash(cleanPath))
		if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
			s.handleNotFound(w, r)
			return
		}

		info, err := os.Stat(absPath)
		if err != nil {
			s.handleNotFound(w, r)
			return
		}
		if info.IsDir() {
			if _, err := os.Stat(filepath.Join(absPath, "index.html")); err != nil {
				s.handleNotFound(w, r)
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		fs.ServeHTTP(w, r)
	})
}
