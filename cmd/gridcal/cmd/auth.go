package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/theakshaypant/gridcal/internal/adapter/google"
	"github.com/theakshaypant/gridcal/internal/adapter/outlook"
	"github.com/theakshaypant/gridcal/internal/apiclient"
)

const (
	redirectPort = "8085"
	redirectURL  = "http://localhost:" + redirectPort + "/callback"

	authTimeout = 5 * time.Minute
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate directly with Google or Outlook",
	Long: `Authenticate with your calendar provider using OAuth, for the google and
outlook stores.

  1. Starts a local server to receive the OAuth callback
  2. Opens your browser to sign in
  3. Saves the token for future use

The provider is the configured store (--store google|outlook). For the
server store use 'gridcal login' instead.`,
	Annotations: noStore,
	RunE:        runAuth,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the gridcal server",
	Long: `Sign in to the gridcal server with your Google account.

Opens the server's sign-in page in your browser. When Google is done the
server hands the session back to this command, which saves it for the
server store.`,
	Annotations: noStore,
	RunE:        runLogin,
}

var logoutCmd = &cobra.Command{
	Use:         "logout",
	Short:       "Sign out of the gridcal server",
	Annotations: noStore,
	RunE:        runLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	switch provider := viper.GetString("store"); provider {
	case "google":
		return runGoogleAuth(cmd.Context())
	case "outlook":
		return runOutlookAuth(cmd.Context())
	case "server":
		return fmt.Errorf("the server store signs in with 'gridcal login'")
	default:
		return fmt.Errorf("store %q needs no authentication (use --store google|outlook)", provider)
	}
}

func runGoogleAuth(ctx context.Context) error {
	credsFile := expandPath(viper.GetString("credentials_file"))
	tokenFile := expandPath(viper.GetString("token_file"))

	b, err := os.ReadFile(credsFile)
	if err != nil {
		return fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := googleoauth.ConfigFromJSON(b, google.Scopes...)
	if err != nil {
		return fmt.Errorf("unable to parse credentials: %w", err)
	}
	config.RedirectURL = redirectURL

	tok, err := getTokenViaLocalServer(ctx, config, "Google", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	if err := saveToken(tokenFile, tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Println("\n✅ Authentication successful!")
	fmt.Printf("📁 Token saved to %s\n", tokenFile)
	fmt.Println("\nYou can now run 'gridcal --store google'.")

	return nil
}

func runOutlookAuth(ctx context.Context) error {
	clientID := viper.GetString("client_id")
	if clientID == "" {
		return fmt.Errorf("client_id not configured\n\nAdd it to your profile config:\n  client_id: \"your-azure-app-client-id\"")
	}

	tokenFile := expandPath(viper.GetString("token_file"))
	config := outlook.New(outlook.Config{
		ClientID:    clientID,
		TenantID:    viper.GetString("tenant_id"),
		TokenFile:   tokenFile,
		RedirectURL: redirectURL,
	}).OAuthConfig()

	tok, err := getTokenViaLocalServer(ctx, config, "Microsoft", oauth2.SetAuthURLParam("prompt", "consent"))
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	if err := saveToken(tokenFile, tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Println("\n✅ Authentication successful!")
	fmt.Printf("📁 Token saved to %s\n", tokenFile)
	fmt.Println("\nYou can now run 'gridcal --store outlook'.")

	return nil
}

const successPage = `<!DOCTYPE html>
<html>
<head>
	<title>Signed in</title>
	<style>
		body { font-family: -apple-system, sans-serif; display: flex;
		       justify-content: center; align-items: center; height: 100vh;
		       margin: 0; background: #1a1a1a; color: #fff; }
		.card { background: #2d2d2d; padding: 40px; border-radius: 12px;
		        box-shadow: 0 2px 10px rgba(0,0,0,0.3); text-align: center; }
		h1 { color: #4ade80; margin-bottom: 10px; }
		p { color: #a1a1aa; }
	</style>
</head>
<body>
	<div class="card">
		<h1>Signed in</h1>
		<p>You can close this window and return to the terminal.</p>
	</div>
</body>
</html>`

// waitForCallback serves /callback on ln until it receives the query
// parameter param, an error parameter, or the timeout passes.
func waitForCallback(ctx context.Context, ln net.Listener, param string) (string, error) {
	valueCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		value := r.URL.Query().Get(param)
		if value == "" {
			errMsg := r.URL.Query().Get("error")
			http.Error(w, "Authorization failed: "+errMsg, http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("authorization failed: %s", errMsg):
			default:
			}
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, successPage)
		select {
		case valueCh <- value:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(ln); err != http.ErrServerClosed {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
	defer server.Shutdown(context.Background())

	fmt.Println("⏳ Waiting for authorization...")

	select {
	case v := <-valueCh:
		return v, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(authTimeout):
		return "", fmt.Errorf("timeout waiting for authorization")
	}
}

func getTokenViaLocalServer(ctx context.Context, config *oauth2.Config, providerName string, authOpts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "localhost:"+redirectPort)
	if err != nil {
		return nil, fmt.Errorf("listen for callback: %w", err)
	}

	authURL := config.AuthCodeURL("state-token", authOpts...)
	fmt.Printf("🔐 Opening browser for %s authorization...\n\n", providerName)
	promptBrowser(authURL)

	code, err := waitForCallback(ctx, ln, "code")
	if err != nil {
		return nil, err
	}

	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	return tok, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	serverURL := strings.TrimRight(viper.GetString("server_url"), "/")
	sessionFile := expandPath(viper.GetString("session_file"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	loginURL := serverURL + "/auth/google?" + url.Values{"cli_port": {fmt.Sprint(port)}}.Encode()
	fmt.Printf("🔐 Opening browser to sign in to %s...\n\n", serverURL)
	promptBrowser(loginURL)

	session, err := waitForCallback(cmd.Context(), ln, "session")
	if err != nil {
		return err
	}

	c, err := apiclient.New(serverURL, session)
	if err != nil {
		return err
	}
	user, err := c.Me(cmd.Context())
	if err != nil {
		return fmt.Errorf("verify session: %w", err)
	}
	if err := apiclient.SaveSession(sessionFile, session); err != nil {
		return err
	}

	fmt.Printf("\n✅ Signed in as %s\n", user.Email)
	fmt.Println("\nYou can now run 'gridcal --store server'.")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	sessionFile := expandPath(viper.GetString("session_file"))
	session, err := apiclient.LoadSession(sessionFile)
	if err == nil {
		if c, err := apiclient.New(viper.GetString("server_url"), session); err == nil {
			// The server only clears its cookie, a failure here changes nothing.
			c.Logout(cmd.Context())
		}
	}
	if err := apiclient.ClearSession(sessionFile); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func promptBrowser(u string) {
	if err := openBrowser(u); err != nil {
		fmt.Println("⚠️  Couldn't open browser automatically.")
		fmt.Println("   Please open this URL manually:")
		fmt.Println(u)
	}
}

func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
