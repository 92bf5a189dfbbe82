package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/theakshaypant/gridcal/internal/core"
)

const (
	providerID   = "outlook"
	providerName = "Outlook Calendar"

	defaultTenant   = "common"
	defaultRedirect = "http://localhost:8085/callback"
)

// Scopes cover reading and writing the signed-in user's calendars. Offline
// access yields the refresh token the store mode relies on.
var Scopes = []string{
	"https://graph.microsoft.com/Calendars.ReadWrite",
	"https://graph.microsoft.com/User.Read",
	"offline_access",
}

// Config locates the Azure app registration and the saved token.
type Config struct {
	ClientID  string
	TenantID  string
	TokenFile string
	// RedirectURL defaults to the local callback of 'gridcal auth'.
	RedirectURL string
}

// Adapter is the Outlook calendar provider, backed by Microsoft Graph.
type Adapter struct {
	cfg    Config
	oauth  *oauth2.Config
	tokens oauth2.TokenSource
	client *msgraphsdk.GraphServiceClient

	mu        sync.Mutex
	calendars map[string]string
}

func New(cfg Config) *Adapter {
	if cfg.TenantID == "" {
		cfg.TenantID = defaultTenant
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = defaultRedirect
	}
	return &Adapter{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			Endpoint:    microsoft.AzureADEndpoint(cfg.TenantID),
			RedirectURL: cfg.RedirectURL,
			Scopes:      Scopes,
		},
		calendars: map[string]string{DefaultCalendar: "Calendar"},
	}
}

func (o *Adapter) ID() string   { return providerID }
func (o *Adapter) Name() string { return providerName }

// OAuthConfig is used by 'gridcal auth' to run the consent flow.
func (o *Adapter) OAuthConfig() *oauth2.Config { return o.oauth }

// Login loads the saved token, builds the Graph client and reads the
// calendar list. An unusable token is reported as core.ErrUnauthorized.
func (o *Adapter) Login(ctx context.Context) error {
	tok, err := readToken(o.cfg.TokenFile)
	if err != nil {
		return fmt.Errorf("read token file (run 'gridcal auth' first): %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return fmt.Errorf("%w: %s holds no token, run 'gridcal auth' again", core.ErrUnauthorized, o.cfg.TokenFile)
	}

	// Refreshed tokens are written back so the next run starts from them.
	o.tokens = oauth2.ReuseTokenSource(tok, &savingSource{
		src:  o.oauth.TokenSource(ctx, tok),
		path: o.cfg.TokenFile,
	})

	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(credential{o.tokens}, []string{
		"https://graph.microsoft.com/.default",
	})
	if err != nil {
		return fmt.Errorf("create graph client: %w", err)
	}
	o.client = client

	if err := o.loadCalendars(ctx); err != nil {
		return fmt.Errorf("load calendar list: %w", err)
	}
	return nil
}

// Calendars returns the calendars of the user (ID -> Name), including the
// "default" alias for the primary one.
func (o *Adapter) Calendars() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]string, len(o.calendars))
	for id, name := range o.calendars {
		out[id] = name
	}
	return out
}

func (o *Adapter) loadCalendars(ctx context.Context) error {
	result, err := o.client.Me().Calendars().Get(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, cal := range result.GetValue() {
		if id, name := cal.GetId(), cal.GetName(); id != nil && name != nil {
			o.calendars[*id] = *name
		}
	}
	return nil
}

// credential hands oauth2 tokens to the Azure SDK.
type credential struct {
	src oauth2.TokenSource
}

func (c credential) GetToken(ctx context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tok, err := c.src.Token()
	if err != nil {
		// Without a fresh token only 'gridcal auth' can help.
		return azcore.AccessToken{}, fmt.Errorf("%w: refresh outlook token: %v", core.ErrUnauthorized, err)
	}
	return azcore.AccessToken{Token: tok.AccessToken, ExpiresOn: tok.Expiry}, nil
}

// savingSource persists every token it mints.
type savingSource struct {
	src  oauth2.TokenSource
	path string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.path != "" {
		// A failed write only costs a refresh on the next run.
		_ = writeToken(s.path, tok)
	}
	return tok, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
