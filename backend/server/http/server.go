package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adwski/groupchat/backend/auth"
	"github.com/adwski/groupchat/backend/model"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline = 10 * time.Second
	defaultUploadMaxBytes   = 5 << 20

	// room for multipart headers on top of the file itself
	multipartOverhead = 64 << 10

	uploadsPrefix = "/uploads/"
)

var (
	ErrUnexpected = errors.New("unexpected server error")
)

type (
	Sessions interface {
		Issue(identity string) (string, error)
		Verify(token string) (string, error)
		TTL() time.Duration
	}

	ChatService interface {
		LogoutIdentity(identity string) bool
	}

	UsernameResponse struct {
		Username string `json:"username"`
	}

	UploadResponse struct {
		Filename         string     `json:"filename"`
		Path             string     `json:"path"`
		OriginalFilename string     `json:"originalFilename"`
		Type             model.Kind `json:"type"`
	}

	GenericResponse struct {
		Message string `json:"message,omitempty"`
		Error   string `json:"error,omitempty"`
	}

	Server struct {
		logger    zerolog.Logger
		sessions  Sessions
		svc       ChatService
		staticDir string
		uploadDir string
		maxUpload int64
		now       func() time.Time
		*http.Server
	}

	Config struct {
		Logger         *zerolog.Logger
		Sessions       Sessions
		ChatService    ChatService
		Metrics        http.Handler
		ListenAddr     string
		StaticDir      string
		UploadDir      string
		UploadMaxBytes int64
	}
)

func NewServer(cfg Config) *Server {
	maxUpload := cfg.UploadMaxBytes
	if maxUpload <= 0 {
		maxUpload = defaultUploadMaxBytes
	}
	srv := &Server{
		logger:    cfg.Logger.With().Str("component", "api-server").Logger(),
		sessions:  cfg.Sessions,
		svc:       cfg.ChatService,
		staticDir: cfg.StaticDir,
		uploadDir: cfg.UploadDir,
		maxUpload: maxUpload,
		now:       time.Now,
	}

	r := http.NewServeMux()
	r.HandleFunc("POST /login", srv.login)
	r.HandleFunc("GET /logout", srv.logout)
	r.HandleFunc("GET /get-username", srv.username)
	r.HandleFunc("POST /upload", srv.upload)
	r.Handle("GET "+uploadsPrefix, http.StripPrefix(uploadsPrefix, http.FileServer(http.Dir(cfg.UploadDir))))
	if cfg.Metrics != nil {
		r.Handle("GET /metrics", cfg.Metrics)
	}
	if cfg.StaticDir != "" {
		r.HandleFunc("GET /login", srv.index)
		r.HandleFunc("GET /chat", srv.chat)
		r.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	srv.Server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}
	return srv
}

func (srv *Server) login(w http.ResponseWriter, r *http.Request) {
	identity, err := model.NormalizeIdentity(r.PostFormValue("username"))
	if err != nil {
		srv.logger.Debug().Err(err).Msg("login rejected")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	token, err := srv.sessions.Issue(identity)
	if err != nil {
		srv.logger.Error().Err(err).Msg("failed to issue session token")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(srv.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	srv.logger.Debug().Str("identity", identity).Msg("logged in")
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

func (srv *Server) logout(w http.ResponseWriter, r *http.Request) {
	if identity, ok := srv.identity(r); ok {
		if srv.svc.LogoutIdentity(identity) {
			srv.logger.Debug().Str("identity", identity).Msg("online identity logged out")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (srv *Server) username(w http.ResponseWriter, r *http.Request) {
	identity, ok := srv.identity(r)
	if !ok {
		srv.writeJSON(w, http.StatusUnauthorized, &GenericResponse{Error: "Not logged in"})
		return
	}
	srv.writeJSON(w, http.StatusOK, &UsernameResponse{Username: identity})
}

func (srv *Server) index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(srv.staticDir, "index.html"))
}

func (srv *Server) chat(w http.ResponseWriter, r *http.Request) {
	if _, ok := srv.identity(r); !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	srv.index(w, r)
}

// upload stores a single multipart "file" and replies with its locator.
// The content is never passed to the chat core, only the locator is.
func (srv *Server) upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := srv.identity(r)
	if !ok {
		srv.writeJSON(w, http.StatusUnauthorized, &GenericResponse{Error: "Not logged in"})
		return
	}
	logger := srv.logger.With().Str("identity", identity).Logger()

	r.Body = http.MaxBytesReader(w, r.Body, srv.maxUpload+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			srv.writeJSON(w, http.StatusRequestEntityTooLarge, &GenericResponse{Error: "File too large"})
			return
		}
		logger.Debug().Err(err).Msg("upload rejected")
		srv.writeJSON(w, http.StatusBadRequest, &GenericResponse{Error: "File upload failed"})
		return
	}
	defer func() {
		_ = file.Close()
	}()
	if header.Size > srv.maxUpload {
		srv.writeJSON(w, http.StatusRequestEntityTooLarge, &GenericResponse{Error: "File too large"})
		return
	}

	mt, err := mimetype.DetectReader(file)
	if err != nil {
		logger.Error().Err(err).Msg("failed to sniff upload")
		srv.writeJSON(w, http.StatusBadRequest, &GenericResponse{Error: "File upload failed"})
		return
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		logger.Error().Err(err).Msg("failed to rewind upload")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("%d-%s%s", srv.now().UnixMilli(), uuid.NewString()[:8], mt.Extension())
	if err = srv.store(name, file); err != nil {
		logger.Error().Err(err).Msg("failed to store upload")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	kind := model.KindFile
	if strings.HasPrefix(mt.String(), "image/") {
		kind = model.KindImage
	}
	logger.Debug().
		Str("file", name).
		Str("mime", mt.String()).
		Int64("size", header.Size).
		Msg("upload stored")

	srv.writeJSON(w, http.StatusOK, &UploadResponse{
		Filename:         name,
		Path:             uploadsPrefix + name,
		OriginalFilename: filepath.Base(header.Filename),
		Type:             kind,
	})
}

func (srv *Server) store(name string, src io.Reader) error {
	if err := os.MkdirAll(srv.uploadDir, 0o755); err != nil {
		return err
	}
	dst, err := os.OpenFile(filepath.Join(srv.uploadDir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func (srv *Server) identity(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil {
		return "", false
	}
	identity, err := srv.sessions.Verify(cookie.Value)
	if err != nil {
		srv.logger.Trace().Err(err).Msg("session cookie rejected")
		return "", false
	}
	return identity, true
}

func (srv *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(code)
	if _, err = w.Write(b); err != nil {
		srv.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	hErr := make(chan error)
	go func() {
		hErr <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-hErr:
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Join(ErrUnexpected, err)
		}
	case <-ctx.Done():
		shCtx, shCancel := context.WithTimeout(context.Background(), defaultShutdownDeadline)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			srv.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}
}
