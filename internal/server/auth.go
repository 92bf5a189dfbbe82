package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	googleadapter "github.com/theakshaypant/gridcal/internal/adapter/google"
	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/db"
)

// stateTTL bounds how long a consent screen may stay open.
const stateTTL = 10 * time.Minute

type sessionClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// stateClaims travel through Google as the OAuth state. CLIPort is set when
// a terminal client started the login and waits on a loopback listener.
type stateClaims struct {
	CLIPort int `json:"cliPort,omitempty"`
	jwt.RegisteredClaims
}

func (s *Server) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SessionSecret))
}

func (s *Server) parse(raw string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.SessionSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	return err
}

// IssueSession signs a session token for userID.
func (s *Server) IssueSession(userID string) (string, error) {
	now := s.now()
	return s.sign(sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	})
}

func (s *Server) redirectToGoogle(c *gin.Context) {
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(s.now().Add(stateTTL))},
	}
	if raw := c.Query("cli_port"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1024 || port > 65535 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cli_port"})
			return
		}
		claims.CLIPort = port
	}

	state, err := s.sign(claims)
	if err != nil {
		s.log.Error("sign oauth state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))
}

func (s *Server) googleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "missing authorization code")
		return
	}
	var state stateClaims
	if err := s.parse(c.Query("state"), &state); err != nil {
		c.String(http.StatusBadRequest, "invalid or expired login state")
		return
	}

	ctx := c.Request.Context()
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.log.Error("exchange authorization code", zap.Error(err))
		c.String(http.StatusInternalServerError, "google sign-in failed")
		return
	}

	profile, err := s.profile(ctx, s.oauth.Client(ctx, tok))
	if err != nil {
		s.log.Error("fetch google profile", zap.Error(err))
		c.String(http.StatusInternalServerError, "google sign-in failed")
		return
	}
	user, err := s.store.UpsertUser(ctx, profile)
	if err != nil {
		s.log.Error("store user", zap.Error(err))
		c.String(http.StatusInternalServerError, "google sign-in failed")
		return
	}
	if err := s.store.SaveToken(ctx, user.ID, tok); err != nil {
		s.log.Error("store token", zap.Error(err))
		c.String(http.StatusInternalServerError, "google sign-in failed")
		return
	}

	session, err := s.IssueSession(user.ID)
	if err != nil {
		s.log.Error("sign session", zap.Error(err))
		c.String(http.StatusInternalServerError, "google sign-in failed")
		return
	}
	s.log.Info("user signed in", zap.String("user", user.ID), zap.Bool("cli", state.CLIPort != 0))

	s.setSessionCookie(c, session, int(SessionTTL/time.Second))
	if state.CLIPort != 0 {
		q := url.Values{"session": {session}}
		c.Redirect(http.StatusFound, fmt.Sprintf("http://127.0.0.1:%d/callback?%s", state.CLIPort, q.Encode()))
		return
	}
	c.Redirect(http.StatusFound, s.cfg.FrontendURL+"/")
}

func (s *Server) logout(c *gin.Context) {
	s.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, value, maxAge, "/", "", s.cfg.SecureCookie, true)
}

// requireAuth resolves the session cookie to a user id.
func (s *Server) requireAuth(c *gin.Context) {
	raw, err := c.Cookie(SessionCookie)
	if err != nil || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var claims sessionClaims
	if err := s.parse(raw, &claims); err != nil || claims.UserID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDKey, claims.UserID)
	c.Next()
}

// googleProvider builds the calendar provider of a user from the stored
// token, refreshing it first when it is about to expire.
func (s *Server) googleProvider(ctx context.Context, userID string) (core.Provider, error) {
	tok, err := s.token(ctx, userID)
	if err != nil {
		return nil, err
	}
	return googleadapter.NewWithClient(ctx, "google", "Google Calendar", s.oauth.Client(ctx, tok))
}

func (s *Server) token(ctx context.Context, userID string) (*oauth2.Token, error) {
	tok, err := s.store.Token(ctx, userID)
	if errors.Is(err, db.ErrTokenNotFound) {
		return nil, fmt.Errorf("%w: no google token", core.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" || tok.Expiry.IsZero() || s.now().Before(tok.Expiry.Add(-refreshWindow)) {
		return tok, nil
	}

	refreshed, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh google token: %v", core.ErrUnauthorized, err)
	}
	if err := s.store.SaveToken(ctx, userID, refreshed); err != nil {
		return nil, err
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tok.RefreshToken
	}
	s.log.Debug("refreshed google token", zap.String("user", userID))
	return refreshed, nil
}

func googleProfile(ctx context.Context, client *http.Client) (db.User, error) {
	svc, err := oauth2api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return db.User{}, err
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return db.User{}, err
	}
	return db.User{GoogleSub: info.Id, Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}
