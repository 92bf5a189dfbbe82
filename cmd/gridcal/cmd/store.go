package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/theakshaypant/gridcal/internal/adapter/google"
	"github.com/theakshaypant/gridcal/internal/adapter/outlook"
	"github.com/theakshaypant/gridcal/internal/apiclient"
	"github.com/theakshaypant/gridcal/internal/cache"
	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/db"
	"github.com/theakshaypant/gridcal/internal/memstore"
	"github.com/theakshaypant/gridcal/internal/service"
)

// localUser owns completion flags when the CLI talks to a provider directly.
const localUser = "local"

// CalendarAdapter extends core.Provider with login and calendar listing.
// Both Google and Outlook adapters implement this interface.
type CalendarAdapter interface {
	core.Provider
	Login(ctx context.Context) error
	Calendars() map[string]string
}

func openStore(cmd *cobra.Command) error {
	source = viper.GetString("store")
	logger.Info("opening store", zap.String("store", source))

	switch source {
	case "local":
		s, err := memstore.Open(memstore.Options{
			Path:   expandPath(viper.GetString("cache_file")),
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("open local events: %w", err)
		}
		store = s
		return nil
	case "server":
		return openServerStore()
	case "google":
		a, err := initGoogleAdapter(cmd)
		if err != nil {
			return err
		}
		return openProviderStore(cmd.Context(), a)
	case "outlook":
		a, err := initOutlookAdapter(cmd)
		if err != nil {
			return err
		}
		return openProviderStore(cmd.Context(), a)
	default:
		return fmt.Errorf("unknown store: %s (supported: local, server, google, outlook)", source)
	}
}

func openServerStore() error {
	sessionFile := expandPath(viper.GetString("session_file"))
	session, err := apiclient.LoadSession(sessionFile)
	if errors.Is(err, apiclient.ErrNoSession) {
		return fmt.Errorf("not signed in to %s\n\nRun 'gridcal login' first", viper.GetString("server_url"))
	}
	if err != nil {
		return err
	}
	c, err := apiclient.New(viper.GetString("server_url"), session, apiclient.WithLogger(logger))
	if err != nil {
		return err
	}
	store = c
	return nil
}

// openProviderStore keeps completion flags in the local database and, when
// redis_url is set, caches listings in Redis like the server does.
func openProviderStore(ctx context.Context, a CalendarAdapter) error {
	adapter = a

	d, err := db.Open(expandPath(viper.GetString("db_file")))
	if err != nil {
		return err
	}
	closers = append(closers, d.Close)

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithCalendar(viper.GetString("calendar_id")),
	}
	if url := viper.GetString("redis_url"); url != "" {
		rc, err := cache.Connect(ctx, url, viper.GetDuration("cache_ttl"), logger)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			closers = append(closers, rc.Close)
			opts = append(opts, service.WithCache(rc))
		}
	}
	store = service.New(a, d, localUser, opts...)
	return nil
}

func initGoogleAdapter(cmd *cobra.Command) (CalendarAdapter, error) {
	credsFile := expandPath(viper.GetString("credentials_file"))
	tokenFile := expandPath(viper.GetString("token_file"))

	if _, err := os.Stat(credsFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("credentials file not found: %s\n\nDownload an OAuth client (Desktop app) from the Google Cloud console and save it there", credsFile)
	}

	if _, err := os.Stat(tokenFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("token file not found: %s\n\nRun 'gridcal auth' to authenticate", tokenFile)
	}

	a := google.NewGoogleAdapter("google", "Google Calendar", credsFile, tokenFile)
	if err := a.Login(cmd.Context()); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return a, nil
}

func initOutlookAdapter(cmd *cobra.Command) (CalendarAdapter, error) {
	clientID := viper.GetString("client_id")
	if clientID == "" {
		return nil, fmt.Errorf("client_id not configured for Outlook\n\nAdd it to your profile config:\n  client_id: \"your-azure-app-client-id\"")
	}

	tokenFile := expandPath(viper.GetString("token_file"))
	if _, err := os.Stat(tokenFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("token file not found: %s\n\nRun 'gridcal auth' to authenticate with Microsoft", tokenFile)
	}

	a := outlook.New(outlook.Config{
		ClientID:  clientID,
		TenantID:  viper.GetString("tenant_id"),
		TokenFile: tokenFile,
	})
	if err := a.Login(cmd.Context()); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return a, nil
}
