package httpkit

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Response is a builder for an HTTP/1.x response, mirroring
// original_source's HttpResponse: status code, headers, body, and an
// optional redirect (spec.md §6).
type Response struct {
	Status   int
	Headers  map[string]string
	Body     []byte
	redirect bool
	location string
}

// NewResponse returns a 200 OK response with no headers or body.
func NewResponse() *Response {
	return &Response{Status: http.StatusOK, Headers: map[string]string{}}
}

// SetBody sets the response body and its Content-Type.
func (r *Response) SetBody(body []byte, contentType string) {
	r.Body = body
	r.Headers["Content-Type"] = contentType
}

// SetHeader sets a response header.
func (r *Response) SetHeader(key, value string) { r.Headers[key] = value }

// HasHeader reports whether key is already set.
func (r *Response) HasHeader(key string) bool {
	_, ok := r.Headers[key]
	return ok
}

// EnableRedirect marks the response as a redirect to url with the given
// status code (default 302 if code is 0).
func (r *Response) EnableRedirect(url string, code int) {
	if code == 0 {
		code = http.StatusFound
	}
	r.Status = code
	r.redirect = true
	r.location = url
}

// KeepAlive reports whether the Connection header is set to keep-alive.
func (r *Response) KeepAlive() bool {
	return r.Headers["Connection"] == "keep-alive"
}

// Build serializes the response into its wire form for req's HTTP
// version, the stand-in for original_source's constructHttpResponseStr.
func (r *Response) Build(req *Request) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %s\r\n", req.Version, r.Status, http.StatusText(r.Status))
	if r.redirect {
		r.Headers["Location"] = r.location
	}
	for k, v := range r.Headers {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	b.WriteString("\r\n")
	b.Write(r.Body)
	return []byte(b.String())
}

// statusText is kept as a thin documented wrapper so callers that want a
// status description without a full Response (e.g. error-page rendering)
// don't need to import net/http directly.
func statusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return t
	}
	return strconv.Itoa(code)
}
