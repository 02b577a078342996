package httpkit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseBuildIncludesStatusHeadersAndBody(t *testing.T) {
	req := NewRequest()
	req.Version = "HTTP/1.1"

	resp := NewResponse()
	resp.SetBody([]byte("hi"), "text/plain")
	resp.SetHeader("Connection", "keep-alive")

	out := string(resp.Build(req))
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, out, "Content-Type: text/plain\r\n")
	assert.Contains(t, out, "Connection: keep-alive\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\nhi"))
}

func TestResponseEnableRedirectSetsLocationAndDefaultCode(t *testing.T) {
	req := NewRequest()
	resp := NewResponse()
	resp.EnableRedirect("/elsewhere", 0)

	assert.Equal(t, 302, resp.Status)
	out := string(resp.Build(req))
	assert.Contains(t, out, "302 Found")
	assert.Contains(t, out, "Location: /elsewhere\r\n")
}

func TestResponseKeepAliveReflectsConnectionHeader(t *testing.T) {
	resp := NewResponse()
	assert.False(t, resp.KeepAlive())
	resp.SetHeader("Connection", "keep-alive")
	assert.True(t, resp.KeepAlive())
}

func TestStatusTextFallsBackToCodeForUnknownStatus(t *testing.T) {
	assert.Equal(t, "Not Found", statusText(404))
	assert.Equal(t, "999", statusText(999))
}
