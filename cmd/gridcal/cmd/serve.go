package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/theakshaypant/gridcal/internal/cache"
	"github.com/theakshaypant/gridcal/internal/db"
	"github.com/theakshaypant/gridcal/internal/logging"
	"github.com/theakshaypant/gridcal/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gridcal server",
	Long: `Run the backend that signs users in with Google and proxies their calendar.

Settings come from the config file, GRIDCAL_* variables, or the plain
variables below, which may also live in a .env file:

  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, SESSION_SECRET,
  BASE_URL, FRONTEND_URL, PORT, DATABASE_PATH, REDIS_URL`,
	Annotations: noStore,
	RunE:        runServe,
}

// serveEnv maps server settings to the unprefixed variables also accepted.
var serveEnv = map[string]string{
	"google_client_id":     "GOOGLE_CLIENT_ID",
	"google_client_secret": "GOOGLE_CLIENT_SECRET",
	"session_secret":       "SESSION_SECRET",
	"base_url":             "BASE_URL",
	"frontend_url":         "FRONTEND_URL",
	"port":                 "PORT",
	"db_file":              "DATABASE_PATH",
	"redis_url":            "REDIS_URL",
	"allowed_origins":      "ALLOWED_ORIGINS",
	"secure_cookie":        "SECURE_COOKIE",
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("env-file", ".env", "dotenv file to load; missing files are ignored")
	serveCmd.Flags().Int("port", 3001, "Port to listen on")
	serveCmd.Flags().Bool("debug", false, "Run gin in debug mode")

	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("debug", serveCmd.Flags().Lookup("debug"))
}

func runServe(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	for key, env := range serveEnv {
		viper.BindEnv(key, "GRIDCAL_"+strings.ToUpper(key), env)
	}

	log, err := logging.New(viper.GetString("log_level"), "")
	if err != nil {
		return err
	}
	defer log.Sync()

	port := viper.GetInt("port")
	baseURL := viper.GetString("base_url")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", port)
	}
	cfg := server.Config{
		Addr:               fmt.Sprintf(":%d", port),
		BaseURL:            strings.TrimRight(baseURL, "/"),
		FrontendURL:        strings.TrimRight(viper.GetString("frontend_url"), "/"),
		GoogleClientID:     viper.GetString("google_client_id"),
		GoogleClientSecret: viper.GetString("google_client_secret"),
		SessionSecret:      viper.GetString("session_secret"),
		SecureCookie:       viper.GetBool("secure_cookie"),
		AllowedOrigins:     splitList(viper.GetString("allowed_origins")),
		CalendarID:         viper.GetString("calendar_id"),
		Debug:              viper.GetBool("debug"),
	}
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(expandPath(viper.GetString("db_file")))
	if err != nil {
		return err
	}
	defer database.Close()

	opts := []server.Option{server.WithLogger(log)}
	if url := viper.GetString("redis_url"); url != "" {
		rc, err := cache.Connect(ctx, url, viper.GetDuration("cache_ttl"), log)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			defer rc.Close()
			opts = append(opts, server.WithCache(rc))
		}
	}

	srv, err := server.New(cfg, database, opts...)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
