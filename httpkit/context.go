package httpkit

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidalcore/reactor"
)

// RecvStatus tracks how far incremental parsing of one request has
// progressed (original_source ReqRecvStatus).
type RecvStatus int

const (
	RecvLine RecvStatus = iota
	RecvHeader
	RecvBody
	RecvOK
	RecvError
)

const maxRequestLineSize = 8192

var requestLineExpr = regexp.MustCompile(`(?i)^(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS|TRACE|CONNECT) (/[^?\s]*)(?:\?([^\s]*))? (HTTP/1\.[01])$`)

// Context is the incremental HTTP request parser bound to one
// Connection's protocol slot, reused across pipelined requests
// (original_source net/http/http_context.h). Unlike the source, its
// top-level driver runs each stage only while the stage before it
// actually completed — see ConstructRequest's doc comment for why.
type Context struct {
	request        *Request
	responseStatus int
	status         RecvStatus

	bodyRemaining int
	bodySink      io.WriteCloser
	usedBodySink  bool

	// onEnterBody, if set, fires exactly once per request the instant
	// headers finish parsing and Content-Length is known, before a single
	// body byte is consumed — the only point at which a caller can still
	// install a BodySink and have every body byte routed to it instead of
	// Request.Body. Installed once per connection by NewServer's wiring,
	// not cleared by Reset.
	onEnterBody func(*Context)
}

// NewContext returns a fresh Context ready to parse a request line.
func NewContext() *Context {
	return &Context{request: NewRequest(), responseStatus: 200, status: RecvLine}
}

func (c *Context) Request() *Request   { return c.request }
func (c *Context) Status() RecvStatus  { return c.status }
func (c *Context) ResponseStatus() int { return c.responseStatus }

// SetEnterBodyCallback installs the hook ConstructRequest fires once
// headers finish parsing, letting a caller stream the body to a sink
// instead of buffering it in Request.Body. Persists across Reset.
func (c *Context) SetEnterBodyCallback(fn func(*Context)) { c.onEnterBody = fn }

// SetBodySink redirects every remaining body byte of the request
// currently being parsed to w instead of Request.Body, so a large body
// never needs to be held in memory all at once. Must be called from
// onEnterBody.
func (c *Context) SetBodySink(w io.WriteCloser) {
	c.bodySink = w
	c.usedBodySink = true
}

// UsedBodySink reports whether the request just completed (status ==
// RecvOK or RecvError) had its body routed to a BodySink rather than
// buffered into Request.Body.
func (c *Context) UsedBodySink() bool { return c.usedBodySink }

// Fail marks the request as failed with the given response status,
// usable by callers of onEnterBody that hit an error (e.g. failing to
// open a destination file) before body parsing even starts.
func (c *Context) Fail(status int) {
	c.responseStatus = status
	c.status = RecvError
}

// Reset clears the context for the next pipelined request.
func (c *Context) Reset() {
	c.closeBodySink()
	c.responseStatus = 200
	c.status = RecvLine
	c.bodyRemaining = 0
	c.usedBodySink = false
	c.request.Reset()
}

func (c *Context) closeBodySink() {
	if c.bodySink == nil {
		return
	}
	c.bodySink.Close()
	c.bodySink = nil
}

// ConstructRequest advances parsing as far as buf's currently buffered
// bytes allow. The source cascades through three calls to the
// request-line handler instead of line -> header -> body (spec.md
// §9(ii)); this drives each stage at most once per call, in that order,
// and only falls through to the next stage once the previous one reports
// completion, so a
// request spanning several TCP segments parses correctly no matter how
// the bytes happen to arrive.
func (c *Context) ConstructRequest(buf *reactor.Buffer) {
	if c.status == RecvLine {
		if !c.handleRequestLine(buf) {
			return
		}
	}
	if c.status == RecvHeader {
		if !c.handleRequestHeader(buf) {
			return
		}
		c.bodyRemaining = c.request.ContentLength()
		if c.onEnterBody != nil {
			c.onEnterBody(c)
		}
		if c.status == RecvError {
			return
		}
	}
	if c.status == RecvBody {
		c.handleRequestBody(buf)
	}
}

// handleRequestLine consumes one line from buf and parses it as the
// request line. It returns false either on a parse error (status becomes
// RecvError) or when buf doesn't yet contain a complete line.
func (c *Context) handleRequestLine(buf *reactor.Buffer) bool {
	line := buf.ReadLineAdvance()
	if line == nil {
		if buf.Readable() > maxRequestLineSize {
			c.responseStatus = 414
			c.status = RecvError
		}
		return false
	}
	if len(line) > maxRequestLineSize {
		c.responseStatus = 414
		c.status = RecvError
		return false
	}
	return c.parseRequestLine(strings.TrimRight(string(line), "\r\n"))
}

func (c *Context) parseRequestLine(line string) bool {
	m := requestLineExpr.FindStringSubmatch(line)
	if m == nil {
		c.responseStatus = 400
		c.status = RecvError
		return false
	}
	path, err := url.PathUnescape(m[2])
	if err != nil {
		c.responseStatus = 400
		c.status = RecvError
		return false
	}
	c.request.Method = strings.ToUpper(m[1])
	c.request.Path = path
	c.request.Version = m[4]

	if m[3] != "" {
		for _, pair := range strings.Split(m[3], "&") {
			if pair == "" {
				continue
			}
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 {
				c.responseStatus = 400
				c.status = RecvError
				return false
			}
			key, err := url.QueryUnescape(kv[0])
			if err != nil {
				c.responseStatus = 400
				c.status = RecvError
				return false
			}
			val, err := url.QueryUnescape(kv[1])
			if err != nil {
				c.responseStatus = 400
				c.status = RecvError
				return false
			}
			c.request.Params[key] = val
		}
	}

	c.status = RecvHeader
	return true
}

// handleRequestHeader consumes header lines until the blank line
// terminator, or until buf runs out of complete lines.
func (c *Context) handleRequestHeader(buf *reactor.Buffer) bool {
	for {
		line := buf.ReadLineAdvance()
		if line == nil {
			if buf.Readable() > maxRequestLineSize {
				c.responseStatus = 414
				c.status = RecvError
				return false
			}
			return false
		}
		trimmed := strings.TrimRight(string(line), "\r\n")
		if trimmed == "" {
			c.status = RecvBody
			return true
		}
		if !c.parseHeaderLine(trimmed) {
			return false
		}
	}
}

// parseHeaderLine splits one "Key: Value" line and stores it. It returns
// true on every successful path, including a line with no colon
// separator, which is silently skipped rather than treated as fatal — the
// source's equivalent function has no return statement on its success
// path at all, an omission spec.md §9(iii) calls out; the contract here
// is to always return a definite true/false.
func (c *Context) parseHeaderLine(line string) bool {
	idx := strings.Index(line, ": ")
	if idx < 0 {
		return true
	}
	c.request.Headers[line[:idx]] = line[idx+2:]
	return true
}

// handleRequestBody consumes up to bodyRemaining bytes per call, as many
// calls as it takes for the full body to arrive. Each chunk goes straight
// to the BodySink if one was installed from onEnterBody, never touching
// Request.Body — so a multi-hundred-megabyte PUT never needs a buffer
// anywhere near that size, only whatever happens to already be sitting in
// buf. Without a sink installed, chunks accumulate into Request.Body as
// before, for handlers that want the whole body in memory.
func (c *Context) handleRequestBody(buf *reactor.Buffer) bool {
	if c.bodyRemaining <= 0 {
		c.status = RecvOK
		return true
	}
	readable := buf.Readable()
	n := c.bodyRemaining
	if readable < n {
		n = readable
	}
	if n == 0 {
		return false
	}
	chunk := make([]byte, n)
	buf.Read(chunk, n)
	if c.bodySink != nil {
		if _, err := c.bodySink.Write(chunk); err != nil {
			c.Fail(500)
			return false
		}
	} else {
		c.request.Body = append(c.request.Body, chunk...)
	}
	c.bodyRemaining -= n
	if c.bodyRemaining == 0 {
		c.status = RecvOK
		return true
	}
	return false
}
