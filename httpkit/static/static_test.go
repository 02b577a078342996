package static

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidalcore/reactor/httpkit"
)

func newTestRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>home</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	return dir
}

func getReq(path string) *httpkit.Request {
	req := httpkit.NewRequest()
	req.Method = "GET"
	req.Path = path
	return req
}

func TestIsStaticRequestAcceptsExistingFile(t *testing.T) {
	h := NewHandler(newTestRoot(t))
	assert.True(t, h.IsStaticRequest(getReq("/style.css")))
}

func TestIsStaticRequestRejectsDirectoryAndMissingFile(t *testing.T) {
	h := NewHandler(newTestRoot(t))
	assert.False(t, h.IsStaticRequest(getReq("/sub")))
	assert.False(t, h.IsStaticRequest(getReq("/does-not-exist.txt")))
}

func TestIsStaticRequestRejectsNonGetMethods(t *testing.T) {
	h := NewHandler(newTestRoot(t))
	req := getReq("/style.css")
	req.Method = "POST"
	assert.False(t, h.IsStaticRequest(req))
}

func TestIsStaticRequestWithNoRootConfiguredIsAlwaysFalse(t *testing.T) {
	h := NewHandler("")
	assert.False(t, h.IsStaticRequest(getReq("/style.css")))
}

func TestServeSetsBodyAndMimeType(t *testing.T) {
	h := NewHandler(newTestRoot(t))
	resp := httpkit.NewResponse()
	h.Serve(getReq("/style.css"), resp)

	assert.Equal(t, "body{}", string(resp.Body))
	assert.Equal(t, "text/css; charset=utf-8", resp.Headers["Content-Type"])
}

func TestServeResolvesRootToIndexHtml(t *testing.T) {
	h := NewHandler(newTestRoot(t))
	resp := httpkit.NewResponse()
	h.Serve(getReq("/"), resp)
	assert.Equal(t, "<h1>home</h1>", string(resp.Body))
}

func TestValidResourcePathRejectsClimbingAboveRoot(t *testing.T) {
	assert.True(t, validResourcePath("/a/b/../c"))
	assert.False(t, validResourcePath("/../etc/passwd"))
	assert.False(t, validResourcePath("/a/../../b"))
	assert.False(t, validResourcePath(""))
	assert.True(t, validResourcePath("/"))
}

func TestOpenPUTSinkWritesToNamedFile(t *testing.T) {
	dir := newTestRoot(t)
	h := NewHandler(dir)
	require.True(t, h.ValidPUTPath("/uploaded.txt"))

	f, err := h.OpenPUTSink("/uploaded.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("uploaded content"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := os.ReadFile(filepath.Join(dir, "uploaded.txt"))
	require.NoError(t, err)
	assert.Equal(t, "uploaded content", string(got))
}

func TestValidPUTPathRejectsPathTraversal(t *testing.T) {
	h := NewHandler(newTestRoot(t))
	assert.False(t, h.ValidPUTPath("/../escape.txt"))
}

func TestValidPUTPathRejectsEmptyRoot(t *testing.T) {
	h := NewHandler("")
	assert.False(t, h.ValidPUTPath("/uploaded.txt"))
}

func TestNotFoundBodyFallsBackToGenericPageWhenNo404Html(t *testing.T) {
	h := NewHandler(newTestRoot(t))
	body := h.NotFoundBody(404, "Not Found")
	assert.Contains(t, string(body), "404")
	assert.Contains(t, string(body), "Not Found")
}

func TestNotFoundBodyUsesCustom404HtmlWhenPresent(t *testing.T) {
	dir := newTestRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "404.html"), []byte("custom missing page"), 0o644))
	h := NewHandler(dir)
	body := h.NotFoundBody(404, "Not Found")
	assert.Equal(t, "custom missing page", string(body))
}
