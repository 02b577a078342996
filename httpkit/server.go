package httpkit

import (
	"regexp"
	"strconv"

	"github.com/tidalcore/reactor"
	"github.com/tidalcore/reactor/httpkit/static"
	"github.com/tidalcore/reactor/internal/rlog"
)

// Handler processes one parsed request into a response.
type Handler func(req *Request, resp *Response)

type route struct {
	pattern *regexp.Regexp
	handler Handler
}

const defaultIdleTimeoutSeconds = 10

// Server is an HTTP/1.x server built on top of reactor.TcpServer: it
// installs the parsing Context as each connection's protocol slot and
// serves a completed GET/HEAD request from the static root when it names
// an existing file there, otherwise routes it through method-keyed regex
// tables (original_source net/http/http_server.h).
type Server struct {
	tcp *reactor.TcpServer

	static *static.Handler

	getRoutes    []route
	postRoutes   []route
	putRoutes    []route
	deleteRoutes []route
}

// NewServer binds a listening socket on port and wires the HTTP protocol
// callbacks onto it, with a default 10-second idle timeout (spec.md §6,
// original_source's default_timeout).
func NewServer(port int) (*Server, error) {
	tcp, err := reactor.NewTcpServer(port)
	if err != nil {
		return nil, err
	}
	s := &Server{tcp: tcp}
	tcp.SetConnectedCallback(s.onConnected)
	tcp.SetMessageCallback(s.onMessage)
	tcp.SetOuterCloseCallback(s.onClose)
	tcp.EnableIdleRelease(defaultIdleTimeoutSeconds)
	return s, nil
}

// SetThreadNum configures the worker pool size.
func (s *Server) SetThreadNum(n int) { s.tcp.SetThreadNum(n) }

// SetBaseDir enables static file serving from dir.
func (s *Server) SetBaseDir(dir string) { s.static = static.NewHandler(dir) }

func (s *Server) SetGetHandler(pattern string, h Handler) {
	s.getRoutes = append(s.getRoutes, route{regexp.MustCompile("^" + pattern + "$"), h})
}
func (s *Server) SetPostHandler(pattern string, h Handler) {
	s.postRoutes = append(s.postRoutes, route{regexp.MustCompile("^" + pattern + "$"), h})
}
func (s *Server) SetPutHandler(pattern string, h Handler) {
	s.putRoutes = append(s.putRoutes, route{regexp.MustCompile("^" + pattern + "$"), h})
}
func (s *Server) SetDeleteHandler(pattern string, h Handler) {
	s.deleteRoutes = append(s.deleteRoutes, route{regexp.MustCompile("^" + pattern + "$"), h})
}

// Start runs the server forever.
func (s *Server) Start() { s.tcp.Start() }

func (s *Server) onConnected(conn *reactor.Connection) {
	rlog.Debugf("reactor/httpkit: connection %s established", conn.ID())
	ctx := NewContext()
	ctx.SetEnterBodyCallback(s.onEnterRequestBody)
	conn.SetContext(ctx)
}

// onEnterRequestBody fires the instant a request's headers finish parsing
// and Content-Length is known. A PUT whose path isn't claimed by a
// registered handler, and that names a valid file under the configured
// static root, gets its body streamed straight to that file instead of
// buffered into Request.Body — the only point in the parse where that
// decision can still be made before any body byte is consumed.
func (s *Server) onEnterRequestBody(ctx *Context) {
	req := ctx.Request()
	if req.Method != "PUT" || s.static == nil {
		return
	}
	if matchRoute(req.Path, s.putRoutes) != nil {
		return
	}
	if !s.static.ValidPUTPath(req.Path) {
		return
	}
	sink, err := s.static.OpenPUTSink(req.Path)
	if err != nil {
		ctx.Fail(500)
		return
	}
	ctx.SetBodySink(sink)
}

func (s *Server) onClose(conn *reactor.Connection) {
	rlog.Debugf("reactor/httpkit: connection %s closed", conn.ID())
}

// onMessage drains every complete request currently buffered, matching
// original_source's while-readable pipelining loop.
func (s *Server) onMessage(conn *reactor.Connection, buf *reactor.Buffer) {
	for buf.Readable() > 0 {
		ctx := conn.GetContext().(*Context)
		ctx.ConstructRequest(buf)
		req := ctx.Request()
		resp := NewResponse()

		if ctx.Status() == RecvError {
			s.constructErrorResponse(req, resp, ctx.ResponseStatus())
			s.sendResponse(conn, req, resp)
			ctx.Reset()
			buf.Clear()
			if err := conn.Shutdown(); err != nil {
				rlog.Debugf("reactor/httpkit: connection %s: shutdown: %v", conn.ID(), err)
			}
			return
		}

		if ctx.Status() != RecvOK {
			return
		}

		if ctx.UsedBodySink() {
			// Body already streamed straight to disk in
			// onEnterRequestBody; nothing left to route.
			resp.Status = 200
		} else {
			s.route(req, resp)
		}
		s.sendResponse(conn, req, resp)
		keepAlive := resp.KeepAlive()
		ctx.Reset()
		if !keepAlive {
			if err := conn.Shutdown(); err != nil {
				rlog.Debugf("reactor/httpkit: connection %s: shutdown: %v", conn.ID(), err)
			}
		}
	}
}

// route dispatches a fully-parsed request to static serving or the
// method-keyed handler table, in that priority order (original_source
// getMapping). A streamed-to-disk PUT never reaches here — see
// onEnterRequestBody and onMessage's UsedBodySink branch — so the PUT
// case below only sees PUTs no sink was opened for: those claimed by a
// registered handler, and unclaimed ones, which get a 404. This matches original_source's http_server.h, where every non-GET/HEAD
// method always reaches its own mapping table, never the static branch.
func (s *Server) route(req *Request, resp *Response) {
	if s.static != nil && s.static.IsStaticRequest(req) {
		s.static.Serve(req, resp)
		return
	}
	switch req.Method {
	case "GET", "HEAD":
		s.dispatch(req, resp, s.getRoutes)
	case "POST":
		s.dispatch(req, resp, s.postRoutes)
	case "PUT":
		s.dispatch(req, resp, s.putRoutes)
	case "DELETE":
		s.dispatch(req, resp, s.deleteRoutes)
	default:
		resp.Status = 405
	}
}

func (s *Server) dispatch(req *Request, resp *Response, routes []route) {
	if h := matchRoute(req.Path, routes); h != nil {
		h(req, resp)
		return
	}
	resp.Status = 404
}

// matchRoute returns the handler for the first route whose pattern
// matches path, or nil if none do.
func matchRoute(path string, routes []route) Handler {
	for _, r := range routes {
		if r.pattern.MatchString(path) {
			return r.handler
		}
	}
	return nil
}

func (s *Server) constructErrorResponse(req *Request, resp *Response, code int) {
	resp.Status = code
	var body []byte
	if s.static != nil {
		body = s.static.NotFoundBody(code, statusText(code))
	} else {
		h := static.NewHandler("")
		body = h.NotFoundBody(code, statusText(code))
	}
	resp.SetBody(body, "text/html")
}

func (s *Server) sendResponse(conn *reactor.Connection, req *Request, resp *Response) {
	if req.KeepAlive() {
		resp.SetHeader("Connection", "keep-alive")
	} else {
		resp.SetHeader("Connection", "close")
	}
	if len(resp.Body) > 0 && !resp.HasHeader("Content-Length") {
		resp.SetHeader("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	if len(resp.Body) > 0 && !resp.HasHeader("Content-Type") {
		resp.SetHeader("Content-Type", "text/html")
	}
	if err := conn.Send(resp.Build(req)); err != nil {
		rlog.Debugf("reactor/httpkit: connection %s: send: %v", conn.ID(), err)
	}
}
