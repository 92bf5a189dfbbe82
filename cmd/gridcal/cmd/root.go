package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/logging"
)

var (
	cfgFile string
	profile string

	// Set by openStore for commands that talk to a calendar.
	store   core.EventStore
	source  string
	adapter CalendarAdapter
	logger  = zap.NewNop()
	closers []func() error
)

var rootCmd = &cobra.Command{
	Use:   "gridcal",
	Short: "A terminal calendar you can drag events around in",
	Long: `gridcal shows your calendar as an hour grid in the terminal.

Click an event to see it, drag it to move it, drag its bottom edge to
resize it and press on an empty slot to create one. Events come from a
local file, the gridcal server, or straight from Google or Outlook.`,
	PersistentPreRunE: initStore,
	RunE:              runTUI,
	SilenceUsage:      true,
}

func Execute() {
	err := rootCmd.Execute()
	closeAll()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/gridcal/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "config profile to use (e.g., work, personal)")

	rootCmd.PersistentFlags().StringP("store", "s", "local", "Where events live: local, server, google or outlook")
	rootCmd.PersistentFlags().String("server", "", "gridcal server URL (server store)")
	rootCmd.PersistentFlags().String("calendar", "", "Calendar ID to show and create events in (default: primary)")
	rootCmd.PersistentFlags().StringP("view", "v", "focus", "Initial view: focus, week or month")
	rootCmd.PersistentFlags().String("date", "", "Initial date (YYYY-MM-DD, 'today', 'tomorrow', 'monday', etc.)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-file", "", "Log file (default is $HOME/.config/gridcal/gridcal.log)")

	viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("calendar_id", rootCmd.PersistentFlags().Lookup("calendar"))
	viper.BindPFlag("view", rootCmd.PersistentFlags().Lookup("view"))
	viper.BindPFlag("date", rootCmd.PersistentFlags().Lookup("date"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("GRIDCAL")
	viper.AutomaticEnv()

	dir := configDir()
	viper.SetDefault("store", "local")
	viper.SetDefault("server_url", "http://localhost:3001")
	viper.SetDefault("session_file", filepath.Join(dir, "session"))
	viper.SetDefault("credentials_file", filepath.Join(dir, "credentials.json"))
	viper.SetDefault("token_file", filepath.Join(dir, "token.json"))
	viper.SetDefault("cache_file", filepath.Join(dir, "events.yaml"))
	viper.SetDefault("db_file", filepath.Join(dir, "gridcal.db"))
	viper.SetDefault("log_file", filepath.Join(dir, "gridcal.log"))
	viper.SetDefault("log_level", "info")
	viper.SetDefault("view", "focus")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	applyProfile()
}

// profileSettings are the keys a profile may override.
var profileSettings = []string{
	"store",
	"server_url",
	"session_file",
	"credentials_file",
	"token_file",
	"client_id",
	"tenant_id",
	"calendar_id",
	"cache_file",
	"db_file",
	"redis_url",
	"time_zone",
	"view",
	"log_level",
	"log_file",
}

// applyProfile merges profile-specific settings over defaults
func applyProfile() {
	activeProfile := profile
	if activeProfile == "" {
		activeProfile = viper.GetString("default_profile")
	}
	if activeProfile == "" {
		return
	}

	profileKey := "profiles." + activeProfile
	if !viper.IsSet(profileKey) {
		fmt.Fprintf(os.Stderr, "Warning: profile '%s' not found in config\n", activeProfile)
		return
	}

	fmt.Fprintf(os.Stderr, "Using profile: %s\n", activeProfile)

	// Flags given on the command line win over the profile.
	for _, key := range profileSettings {
		profileSettingKey := profileKey + "." + key
		if viper.IsSet(profileSettingKey) && !isFlagExplicitlySet(key) {
			viper.Set(key, viper.Get(profileSettingKey))
		}
	}
}

// flagNames maps config keys to the persistent flag that sets them.
var flagNames = map[string]string{
	"server_url":  "server",
	"calendar_id": "calendar",
}

func isFlagExplicitlySet(viperKey string) bool {
	flagName, ok := flagNames[viperKey]
	if !ok {
		flagName = strings.ReplaceAll(viperKey, "_", "-")
	}
	f := rootCmd.PersistentFlags().Lookup(flagName)

	return f != nil && f.Changed
}

// initStore opens the event store for commands that need one.
func initStore(cmd *cobra.Command, args []string) error {
	if !needsStore(cmd) {
		return nil
	}
	l, err := logging.New(viper.GetString("log_level"), expandPath(viper.GetString("log_file")))
	if err != nil {
		return err
	}
	logger = l
	closers = append(closers, logger.Sync)
	return openStore(cmd)
}

func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["store"] == "none" {
			return false
		}
	}
	switch cmd.Name() {
	case "help", "completion", "__complete":
		return false
	}
	return true
}

// noStore marks a command that runs without an event store.
var noStore = map[string]string{"store": "none"}

func closeAll() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	closers = nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)
	return filepath.Join(home, ".config", "gridcal")
}

// parseDate parses a date string in various formats
// Supports: YYYY-MM-DD, "today", "tomorrow", "yesterday", weekday names
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch s {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	weekdays := map[string]time.Weekday{
		"sunday": time.Sunday, "sun": time.Sunday,
		"monday": time.Monday, "mon": time.Monday,
		"tuesday": time.Tuesday, "tue": time.Tuesday,
		"wednesday": time.Wednesday, "wed": time.Wednesday,
		"thursday": time.Thursday, "thu": time.Thursday,
		"friday": time.Friday, "fri": time.Friday,
		"saturday": time.Saturday, "sat": time.Saturday,
	}

	// "next <weekday>" and "<weekday>" both mean the coming one
	dayName := strings.TrimPrefix(s, "next ")
	if wd, ok := weekdays[dayName]; ok {
		daysUntil := int(wd - today.Weekday())
		if daysUntil <= 0 {
			daysUntil += 7
		}
		return today.AddDate(0, 0, daysUntil), nil
	}

	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}

	// MM-DD and MM/DD fall in the current year
	for _, layout := range []string{"01-02", "01/02"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t.AddDate(now.Year(), 0, 0), nil
		}
	}

	if t, err := time.ParseInLocation("01/02/2006", s, now.Location()); err == nil {
		return t, nil
	}

	return today, fmt.Errorf("unable to parse date: %s (use YYYY-MM-DD, 'today', 'tomorrow', or weekday names)", s)
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
