// Package server is the gridcal backend: it runs the Google OAuth flow,
// keeps the session cookie and proxies calendar calls for the signed-in user.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/db"
	"github.com/theakshaypant/gridcal/internal/service"
)

const (
	// SessionCookie carries the signed session token.
	SessionCookie = "mc_session"
	// SessionTTL is the lifetime of a session.
	SessionTTL = 7 * 24 * time.Hour
	// refreshWindow refreshes access tokens this close to their expiry.
	refreshWindow = 60 * time.Second
)

type Config struct {
	Addr string
	// BaseURL is the public URL of this server, used for the OAuth callback.
	BaseURL string
	// FrontendURL receives browser logins once the session is set.
	FrontendURL        string
	GoogleClientID     string
	GoogleClientSecret string
	SessionSecret      string
	// SecureCookie sets the Secure flag, required behind HTTPS.
	SecureCookie   bool
	AllowedOrigins []string
	CalendarID     string
	Debug          bool
}

// Store is the persistence the server needs. *db.DB implements it.
type Store interface {
	core.CompletionStore
	UpsertUser(ctx context.Context, u db.User) (db.User, error)
	User(ctx context.Context, id string) (db.User, error)
	SaveToken(ctx context.Context, userID string, tok *oauth2.Token) error
	Token(ctx context.Context, userID string) (*oauth2.Token, error)
}

// ProviderFunc returns the calendar provider acting for userID.
type ProviderFunc func(ctx context.Context, userID string) (core.Provider, error)

// ProfileFunc fetches the Google profile of the account behind client.
type ProfileFunc func(ctx context.Context, client *http.Client) (db.User, error)

type Server struct {
	cfg      Config
	store    Store
	cache    service.RangeCache
	oauth    *oauth2.Config
	provider ProviderFunc
	profile  ProfileFunc
	now      func() time.Time
	log      *zap.Logger
	engine   *gin.Engine
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithCache(c service.RangeCache) Option {
	return func(s *Server) { s.cache = c }
}

func WithProvider(f ProviderFunc) Option {
	return func(s *Server) { s.provider = f }
}

func WithProfile(f ProfileFunc) Option {
	return func(s *Server) { s.profile = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithOAuthEndpoint overrides Google's OAuth endpoint.
func WithOAuthEndpoint(e oauth2.Endpoint) Option {
	return func(s *Server) { s.oauth.Endpoint = e }
}

func New(cfg Config, store Store, opts ...Option) (*Server, error) {
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = cfg.BaseURL
	}

	s := &Server{
		cfg:   cfg,
		store: store,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.BaseURL + "/auth/google/callback",
			Scopes: []string{
				oauth2api.OpenIDScope,
				oauth2api.UserinfoEmailScope,
				oauth2api.UserinfoProfileScope,
				calendar.CalendarReadonlyScope,
				calendar.CalendarEventsScope,
			},
		},
		profile: googleProfile,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	s.provider = s.googleProvider
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("server")

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.log), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "gridcal server is up")
	})

	auth := r.Group("/auth")
	{
		auth.GET("/google", s.redirectToGoogle)
		auth.GET("/google/callback", s.googleCallback)
		auth.POST("/logout", s.logout)
	}

	api := r.Group("/api", s.requireAuth)
	{
		api.GET("/me", s.me)
		api.GET("/events", s.listEvents)
		api.GET("/colors", s.colors)
		api.POST("/events", s.createEvent)
		api.PATCH("/events/:id", s.updateEvent)
		api.DELETE("/events/:id", s.deleteEvent)
		api.POST("/event-status", s.setEventStatus)
	}
	return r
}

// Handler returns the routes wrapped with CORS. Credentials are allowed so
// browsers send the session cookie.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{s.cfg.FrontendURL}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(s.engine)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
