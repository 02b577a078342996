// Package static serves files from a base directory and fixes up error
// pages, a Go-native rendering of original_source's file_op.h and the
// static-resource branch of http_server.h (spec.md §6).
package static

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidalcore/reactor/httpkit"
)

// Handler serves static files from Root for GET/HEAD requests and opens
// destination files for streamed PUT uploads.
type Handler struct {
	Root string
}

// NewHandler returns a Handler rooted at dir. The caller is expected to
// have verified dir is a directory, matching original_source's
// setBaseDir assertion.
func NewHandler(dir string) *Handler { return &Handler{Root: dir} }

// IsStaticRequest reports whether req names a GET/HEAD request for a file
// that exists under h.Root and is not escaping it via ".." segments
// (original_source isStaticResourceRequest/isValidResourcePath).
func (h *Handler) IsStaticRequest(req *httpkit.Request) bool {
	if h.Root == "" {
		return false
	}
	if req.Method != "GET" && req.Method != "HEAD" {
		return false
	}
	if !validResourcePath(req.Path) {
		return false
	}
	info, err := os.Stat(h.resolve(req.Path))
	if err != nil || info.IsDir() {
		return false
	}
	return true
}

// Serve reads the file named by req.Path under h.Root into resp.
func (h *Handler) Serve(req *httpkit.Request, resp *httpkit.Response) {
	path := h.resolve(req.Path)
	body, err := os.ReadFile(path)
	if err != nil {
		return
	}
	resp.SetBody(body, mimeType(filepath.Ext(path)))
}

// ValidPUTPath reports whether reqPath names a destination a streamed PUT
// may write to: a configured root and no ".." climb above it.
func (h *Handler) ValidPUTPath(reqPath string) bool {
	return h.Root != "" && validResourcePath(reqPath)
}

// OpenPUTSink opens (creating or truncating) the file named by reqPath
// under h.Root, for a caller to stream a PUT request body into as bytes
// arrive — recovered from original_source's writeFile, used by the demo's
// large-upload test scenario, but as a body sink rather than a
// whole-body-then-copy step so the file never needs the full upload held
// in memory at once.
func (h *Handler) OpenPUTSink(reqPath string) (*os.File, error) {
	return os.Create(h.resolve(reqPath))
}

func (h *Handler) resolve(reqPath string) string {
	if reqPath == "" || reqPath == "/" {
		return filepath.Join(h.Root, "index.html")
	}
	joined := filepath.Join(h.Root, reqPath)
	if strings.HasSuffix(reqPath, "/") {
		joined = filepath.Join(joined, "index.html")
	}
	return joined
}

// validResourcePath rejects any path whose ".." segments would climb
// above the root, mirroring original_source's level-counting check
// (CommonOp::isValidResourcePath).
func validResourcePath(p string) bool {
	if p == "" {
		return false
	}
	if p == "/" {
		return true
	}
	level := 0
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		if seg == ".." {
			level--
			if level < 0 {
				return false
			}
			continue
		}
		level++
	}
	return true
}

// mimeType looks up the MIME type for a file extension via the standard
// library's builtin table, falling back to a generic octet stream. No
// third-party MIME-table library appears anywhere in the example pack, so
// stdlib is the grounded choice here (see DESIGN.md).
func mimeType(ext string) string {
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// NotFoundBody renders a 404 page: the caller's base_dir's 404.html if
// present, otherwise a generic fallback page (original_source
// constructErrorResponse).
func (h *Handler) NotFoundBody(status int, statusText string) []byte {
	if h.Root != "" {
		if body, err := os.ReadFile(filepath.Join(h.Root, "404.html")); err == nil {
			return body
		}
	}
	return []byte(fmt.Sprintf(
		"<html><head><meta http-equiv='Content-Type' content='text/html;charset=utf-8'></head>"+
			"<body><h1>%d</h1><p>%s</p></body></html>", status, statusText))
}
