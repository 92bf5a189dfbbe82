package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage configuration profiles",
	Long: `Manage configuration profiles for different accounts and stores.

Profiles let you switch between, say, a Google work calendar and a local
scratch calendar with -p.`,
	Annotations: noStore,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileShow,
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileAdd,
}

var profileSetDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileSetDefault,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a profile's settings",
	Long: `Edit a profile's settings using flags.

Example:
  gridcal profile edit work --store=google --calendar-id=team@example.com
  gridcal profile edit home --view=week`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileEdit,
}

// profileFlag is a profile setting editable from the command line.
type profileFlag struct {
	flag  string
	key   string
	usage string
}

var profileFlags = []profileFlag{
	{"store", "store", "Event store: local, server, google or outlook"},
	{"server-url", "server_url", "gridcal server URL"},
	{"session-file", "session_file", "Path to the server session file"},
	{"credentials-file", "credentials_file", "Path to Google OAuth credentials"},
	{"token-file", "token_file", "Path to the provider token file"},
	{"client-id", "client_id", "Azure app client ID (Outlook)"},
	{"tenant-id", "tenant_id", "Azure tenant ID (Outlook)"},
	{"calendar-id", "calendar_id", "Calendar to show and create events in"},
	{"cache-file", "cache_file", "Local event file (local store)"},
	{"db-file", "db_file", "Completion database (google and outlook stores)"},
	{"redis-url", "redis_url", "Redis URL for the listing cache"},
	{"time-zone", "time_zone", "IANA time zone for new events"},
	{"view", "view", "Initial view: focus, week or month"},
	{"log-level", "log_level", "Log level"},
	{"log-file", "log_file", "Log file"},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileSetDefaultCmd)
	profileCmd.AddCommand(profileEditCmd)

	for _, f := range profileFlags {
		profileAddCmd.Flags().String(f.flag, "", f.usage)
		profileEditCmd.Flags().String(f.flag, "", f.usage)
	}
}

func runProfileList(cmd *cobra.Command, args []string) error {
	profiles := viper.GetStringMap("profiles")
	defaultProfile := viper.GetString("default_profile")

	if len(profiles) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("\nAdd one with: gridcal profile add <name> --store=<store>")
		return nil
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available profiles:")
	fmt.Println(rule)

	for _, name := range names {
		marker := "  "
		if name == defaultProfile {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, name)
	}

	fmt.Println(rule)
	if defaultProfile != "" {
		fmt.Printf("Default: %s\n", defaultProfile)
	}
	fmt.Println("\nUse 'gridcal profile show <name>' for details")

	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	var profileName string
	if len(args) > 0 {
		profileName = args[0]
	} else {
		profileName = viper.GetString("default_profile")
		if profileName == "" {
			return fmt.Errorf("no profile specified and no default profile set")
		}
	}

	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found", profileName)
	}

	settings := viper.GetStringMap(profileKey)

	fmt.Printf("Profile: %s\n", profileName)
	if profileName == viper.GetString("default_profile") {
		fmt.Println("(default)")
	}
	fmt.Println(rule)

	for _, f := range profileFlags {
		if val, ok := settings[f.key]; ok {
			fmt.Printf("  %s: %v\n", f.flag, val)
		}
	}

	fmt.Println()
	return nil
}

// changedSettings copies every flag given on the command line into profile.
func changedSettings(cmd *cobra.Command, profile map[string]interface{}) bool {
	changed := false
	for _, f := range profileFlags {
		if cmd.Flags().Changed(f.flag) {
			val, _ := cmd.Flags().GetString(f.flag)
			profile[f.key] = val
			changed = true
		}
	}
	return changed
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	profileKey := "profiles." + profileName
	if viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' already exists. Use 'gridcal profile edit %s' to modify it", profileName, profileName)
	}

	profile := make(map[string]interface{})
	changedSettings(cmd, profile)

	if err := saveProfileToConfig(profileName, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("✓ Profile '%s' created\n", profileName)
	fmt.Printf("\nUse it with: gridcal -p %s\n", profileName)
	fmt.Printf("Set as default: gridcal profile default %s\n", profileName)

	return nil
}

func runProfileSetDefault(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found", profileName)
	}

	if err := setDefaultProfileInConfig(profileName); err != nil {
		return fmt.Errorf("failed to set default profile: %w", err)
	}

	fmt.Printf("✓ Default profile set to '%s'\n", profileName)
	return nil
}

func runProfileEdit(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	profileKey := "profiles." + profileName
	if !viper.IsSet(profileKey) {
		return fmt.Errorf("profile '%s' not found. Use 'gridcal profile add %s' to create it", profileName, profileName)
	}

	profile := make(map[string]interface{})
	for k, v := range viper.GetStringMap(profileKey) {
		profile[k] = v
	}

	if !changedSettings(cmd, profile) {
		fmt.Println("No changes specified. Use flags to update settings:")
		fmt.Println("  gridcal profile edit", profileName, "--view=week")
		return nil
	}

	if err := saveProfileToConfig(profileName, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("✓ Profile '%s' updated\n", profileName)
	return nil
}

// Config file manipulation functions

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(configDir(), "config.yaml")
}

func readConfigFile() (map[string]interface{}, error) {
	data, err := os.ReadFile(getConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]interface{}), nil
		}
		return nil, err
	}

	var config map[string]interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if config == nil {
		config = make(map[string]interface{})
	}

	return config, nil
}

func writeConfigFile(config map[string]interface{}) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

func saveProfileToConfig(name string, profile map[string]interface{}) error {
	config, err := readConfigFile()
	if err != nil {
		return err
	}

	profiles, ok := config["profiles"].(map[string]interface{})
	if !ok {
		profiles = make(map[string]interface{})
	}

	profiles[name] = profile
	config["profiles"] = profiles

	return writeConfigFile(config)
}

func setDefaultProfileInConfig(name string) error {
	config, err := readConfigFile()
	if err != nil {
		return err
	}

	config["default_profile"] = name

	return writeConfigFile(config)
}
