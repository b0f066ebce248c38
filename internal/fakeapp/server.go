// Package fakeapp is an in-process application speaking the queue protocol
// and the registry API, used as the server side in tests.
package fakeapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gradio/pkg/types"
)

const sessionCookie = "access-token"

// Options configures the fake app.
type Options struct {
	Config types.AppConfig
	Info   types.APIInfo
	// InfoBody replaces the info response verbatim when set.
	InfoBody string
	// Handlers produce the stream for a function index. Unknown indexes echo
	// their inputs back as a completed job.
	Handlers map[int64]Handler
	// Stages are returned by successive registry status polls; the last repeats.
	Stages []types.SpaceStage
	// Username and Password enable the login form and protect every other route.
	Username string
	Password string
	// Token, when set, must be presented as a bearer token on every request.
	Token string
	// Fail forces a status code for an endpoint, keyed like "config",
	// "info", "upload", "queue/join", "queue/data", "cancel", "reset",
	// "login", "registry/host", "registry/status".
	Fail map[string]int
	// UploadPaths overrides how many server paths an upload answers with.
	UploadPaths    int
	CORSOrigins    []string
	MaxUploadBytes int64
}

// Upload is one received file.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
	Path        string
}

// Server is the fake app. It is safe for concurrent use.
type Server struct {
	opts    Options
	handler http.Handler
	baseCtx context.Context
	stop    context.CancelFunc
	ts      *httptest.Server

	mu         sync.Mutex
	pending    map[string][]Job
	joins      []types.JoinRequest
	uploads    []Upload
	files      map[string][]byte
	cancels    []types.CancelRequest
	resets     []types.ResetRequest
	statusPoll int
	userAgents []string
	authHdrs   []string
}

// New builds a fake app from opts.
func New(opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.UploadPaths == 0 {
		opts.UploadPaths = 1
	}
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		opts:    opts,
		baseCtx: ctx,
		stop:    stop,
		pending: make(map[string][]Job),
		files:   make(map[string][]byte),
	}
	s.handler = s.routes()
	return s
}

// Start serves the app on a local listener.
func Start(opts Options) *Server {
	s := New(opts)
	s.ts = httptest.NewServer(s)
	return s
}

// URL is the root of a started app.
func (s *Server) URL() string {
	if s.ts == nil {
		return ""
	}
	return s.ts.URL
}

// Close releases held streams and stops a started app.
func (s *Server) Close() {
	s.stop()
	if s.ts != nil {
		s.ts.Close()
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

func (s *Server) prefix() string {
	p := strings.Trim(s.opts.Config.APIPrefix, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}
	r.Use(s.recordHeaders)
	r.Use(s.checkToken)

	r.Get("/api/spaces/{owner}/{name}/host", s.handleHost)
	r.Get("/api/spaces/{owner}/{name}", s.handleStatus)
	r.Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.checkSession)
		r.Get("/config", s.handleConfig)
		p := s.prefix()
		r.Get(p+"/info", s.handleInfo)
		r.Post(p+"/upload", s.handleUpload)
		r.Post(p+"/queue/join", s.handleJoin)
		r.With(inflight).Get(p+"/queue/data", s.handleData)
		r.Post(p+"/cancel", s.handleCancel)
		r.Post(p+"/reset", s.handleReset)
		r.Get(p+"/file=*", s.handleFile)
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

func (s *Server) recordHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.userAgents = append(s.userAgents, r.UserAgent())
		s.authHdrs = append(s.authHdrs, r.Header.Get("Authorization"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			logRequest(r, http.StatusUnauthorized, "rejected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Username != "" {
			c, err := r.Cookie(sessionCookie)
			if err != nil || c.Value != s.sessionToken() {
				writeJSONError(w, http.StatusUnauthorized, "not authenticated")
				logRequest(r, http.StatusUnauthorized, "rejected")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sessionToken() string { return "session-" + s.opts.Username }

// failed writes the forced status for endpoint, if any.
func (s *Server) failed(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	code, ok := s.opts.Fail[endpoint]
	if !ok {
		return false
	}
	writeJSONError(w, code, endpoint+" failure")
	logRequest(r, code, endpoint)
	return true
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, r, "registry/host") {
		return
	}
	id := chi.URLParam(r, "owner") + "-" + chi.URLParam(r, "name")
	writeJSON(w, types.HubHost{Host: baseURL(r), Subdomain: strings.ReplaceAll(id, "_", "-")})
	logRequest(r, http.StatusOK, "host")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, r, "registry/status") {
		return
	}
	s.mu.Lock()
	n := s.statusPoll
	s.statusPoll++
	s.mu.Unlock()
	stage := types.StageRunning
	if len(s.opts.Stages) > 0 {
		if n >= len(s.opts.Stages) {
			n = len(s.opts.Stages) - 1
		}
		stage = s.opts.Stages[n]
	}
	st := types.SpaceStatus{ID: chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")}
	st.Runtime.Stage = stage
	writeJSON(w, st)
	logRequest(r, http.StatusOK, "status")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, r, "login") {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid form")
		return
	}
	if s.opts.Username == "" || r.PostForm.Get("username") != s.opts.Username || r.PostForm.Get("password") != s.opts.Password {
		writeJSONError(w, http.StatusBadRequest, "Incorrect credentials.")
		logRequest(r, http.StatusBadRequest, "login")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: s.sessionToken(), Path: "/", HttpOnly: true})
	writeJSON(w, map[string]bool{"success": true})
	logRequest(r, http.StatusOK, "login")
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, r, "config") {
		return
	}
	writeJSON(w, s.opts.Config)
	logRequest(r, http.StatusOK, "config")
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, r, "info") {
		return
	}
	if s.opts.InfoBody != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, s.opts.InfoBody)
		return
	}
	writeJSON(w, s.opts.Info)
	logRequest(r, http.StatusOK, "info")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, r, "upload") {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no files field")
		return
	}
	var paths []string
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "unreadable part")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "unreadable part")
			return
		}
		p := fmt.Sprintf("/tmp/gradio/%s/%s", uuid.NewString()[:8], fh.Filename)
		s.mu.Lock()
		s.uploads = append(s.uploads, Upload{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data, Path: p})
		s.files[p] = data
		s.mu.Unlock()
		paths = append(paths, p)
	}
	for len(paths) < s.opts.UploadPaths {
		paths = append(paths, paths[0])
	}
	if s.opts.UploadPaths < 0 {
		paths = nil
	}
	writeJSON(w, paths)
	logRequest(r, http.StatusOK, "upload")
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, r, "queue/join") {
		return
	}
	var req types.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionHash == "" {
		writeJSONError(w, http.StatusBadRequest, "session_hash is required")
		return
	}
	if !s.knownFn(req.FnIndex) {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("fn_index %d not found", req.FnIndex))
		return
	}
	job := Job{FnIndex: req.FnIndex, Data: req.Data, SessionHash: req.SessionHash, EventID: strings.ReplaceAll(uuid.NewString(), "-", "")}
	s.mu.Lock()
	s.joins = append(s.joins, req)
	s.pending[req.SessionHash] = append(s.pending[req.SessionHash], job)
	s.mu.Unlock()
	writeJSON(w, types.JoinResponse{EventID: job.EventID})
	logRequest(r, http.StatusOK, "join")
}

// knownFn reports whether idx addresses a declared function, either by its
// explicit id or by its position.
func (s *Server) knownFn(idx int64) bool {
	for i, d := range s.opts.Config.Dependencies {
		if d.ID == idx || (d.ID == types.UnsetDependencyID && int64(i) == idx) {
			return true
		}
	}
	return false
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, r, "queue/data") {
		return
	}
	hash := r.URL.Query().Get("session_hash")
	s.mu.Lock()
	jobs := s.pending[hash]
	delete(s.pending, hash)
	s.mu.Unlock()
	if len(jobs) == 0 {
		writeJSONError(w, http.StatusNotFound, "Session not found.")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	flush()
	ctx, cancel := joinContexts(s.baseCtx, r.Context())
	defer cancel()

	root := baseURL(r) + s.prefix()
	for _, job := range jobs {
		var out io.Writer = w
		if requestLogLevel(r) >= LevelDebug {
			out = io.MultiWriter(w, &streamLineWriter{eventID: job.EventID})
		}
		for _, f := range s.framesFor(job, root) {
			if f.Delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(f.Delay):
				}
			}
			if f.Hold {
				<-ctx.Done()
				return
			}
			if err := writeFrame(out, job, f); err != nil {
				return
			}
			flush()
		}
	}
	logRequest(r, http.StatusOK, "stream end")
}

func (s *Server) framesFor(job Job, root string) []Frame {
	job.APIRoot = root
	job.File = func(path string) ([]byte, bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		b, ok := s.files[path]
		return b, ok
	}
	if h, ok := s.opts.Handlers[job.FnIndex]; ok {
		return h(job)
	}
	data := make([]any, len(job.Data))
	for i, d := range job.Data {
		data[i] = d
	}
	return []Frame{Estimation(0, 1), Starts(), Completed(data...)}
}

func writeFrame(w io.Writer, job Job, f Frame) error {
	if f.Comment != "" {
		_, err := fmt.Fprintf(w, ": %s\n\n", f.Comment)
		return err
	}
	data := f.Raw
	if data == "" {
		m := f.Msg
		if _, ok := m["event_id"]; !ok && !f.NoEventID {
			m = make(map[string]any, len(f.Msg)+1)
			for k, v := range f.Msg {
				m[k] = v
			}
			m["event_id"] = job.EventID
		}
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		data = string(b)
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, r, "cancel") {
		return
	}
	var req types.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.mu.Lock()
	s.cancels = append(s.cancels, req)
	s.mu.Unlock()
	writeJSON(w, map[string]bool{"success": true})
	logRequest(r, http.StatusOK, "cancel")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, r, "reset") {
		return
	}
	var req types.ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.mu.Lock()
	s.resets = append(s.resets, req)
	s.mu.Unlock()
	writeJSON(w, map[string]bool{"success": true})
	logRequest(r, http.StatusOK, "reset")
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	p := "/" + strings.TrimLeft(chi.URLParam(r, "*"), "/")
	s.mu.Lock()
	data, ok := s.files[p]
	s.mu.Unlock()
	if !ok {
		writeJSONError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

// AddFile makes data downloadable at path.
func (s *Server) AddFile(path string, data []byte) {
	s.mu.Lock()
	s.files[path] = append([]byte(nil), data...)
	s.mu.Unlock()
}

// Joins returns the received queue join payloads.
func (s *Server) Joins() []types.JoinRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.JoinRequest(nil), s.joins...)
}

// Uploads returns the received files in arrival order.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Cancels returns the received cancel requests.
func (s *Server) Cancels() []types.CancelRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.CancelRequest(nil), s.cancels...)
}

// Resets returns the received reset requests.
func (s *Server) Resets() []types.ResetRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ResetRequest(nil), s.resets...)
}

// StatusPolls returns how many registry status polls were served.
func (s *Server) StatusPolls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusPoll
}

// UserAgents returns the User-Agent of every request seen.
func (s *Server) UserAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.userAgents...)
}

// AuthorizationHeaders returns the Authorization header of every request seen.
func (s *Server) AuthorizationHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHdrs...)
}
