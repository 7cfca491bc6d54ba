package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/kanban/internal/health"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "kanban"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage kanban configuration.

Running bare 'kanban config' is the same as 'kanban config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# kanban configuration
# See: kanban config show (for effective values and sources)

# State/data directory (default: ~/.config/kanban)
# state_dir: {{ .StateDir }}

# SQLite database holding the last fetched items of every board
# db_path: {{ .DBPath }}

# Launchpad API access. Leave the token empty for anonymous access;
# 'kanban login' fills it in.
launchpad:
  service_root: "{{ .ServiceRoot }}"
  web_root: "{{ .WebRoot }}"
  consumer_key: "{{ .ConsumerKey }}"
  oauth_token: ""
  oauth_token_secret: ""
  # Parallel requests when resolving bugs and team members
  max_concurrency: {{ .MaxConcurrency }}
  # Fix Released bugs closed longer ago are left off person boards
  released_within_days: {{ .ReleasedWithinDays }}

board:
  # Show a separate "Needs testing" column
  include_needs_testing: {{ .IncludeNeedsTesting }}

# Business days before in-progress or in-review bugs are flagged
warn:
  in_progress_days: {{ .Warn.InProgress }}
  review_days: {{ .Warn.Review }}
danger:
  in_progress_days: {{ .Danger.InProgress }}
  review_days: {{ .Danger.Review }}

# Roadmap file served by 'kanban serve' and the MCP roadmap tool
# roadmap: ~/roadmap.yaml

# Port for 'kanban serve'
port: {{ .Port }}
`

type configTemplateData struct {
	StateDir            string
	DBPath              string
	ServiceRoot         string
	WebRoot             string
	ConsumerKey         string
	MaxConcurrency      int
	ReleasedWithinDays  int
	IncludeNeedsTesting bool
	Warn                health.Thresholds
	Danger              health.Thresholds
	Port                int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:            viper.GetString("state_dir"),
		DBPath:              viper.GetString("db_path"),
		ServiceRoot:         viper.GetString("launchpad.service_root"),
		WebRoot:             viper.GetString("launchpad.web_root"),
		ConsumerKey:         viper.GetString("launchpad.consumer_key"),
		MaxConcurrency:      viper.GetInt("launchpad.max_concurrency"),
		ReleasedWithinDays:  viper.GetInt("launchpad.released_within_days"),
		IncludeNeedsTesting: viper.GetBool("board.include_needs_testing"),
		Warn:                thresholds("warn"),
		Danger:              thresholds("danger"),
		Port:                viper.GetInt("port"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "KANBAN_STATE_DIR"},
	{Key: "db_path", EnvVar: "KANBAN_DB_PATH"},
	{Key: "launchpad.service_root", EnvVar: "KANBAN_LAUNCHPAD_SERVICE_ROOT"},
	{Key: "launchpad.web_root", EnvVar: "KANBAN_LAUNCHPAD_WEB_ROOT"},
	{Key: "launchpad.consumer_key", EnvVar: "KANBAN_LAUNCHPAD_CONSUMER_KEY"},
	{Key: "launchpad.oauth_token", EnvVar: "KANBAN_LAUNCHPAD_OAUTH_TOKEN"},
	{Key: "launchpad.max_concurrency", EnvVar: "KANBAN_LAUNCHPAD_MAX_CONCURRENCY"},
	{Key: "launchpad.requests_per_second", EnvVar: "KANBAN_LAUNCHPAD_REQUESTS_PER_SECOND"},
	{Key: "launchpad.released_within_days", EnvVar: "KANBAN_LAUNCHPAD_RELEASED_WITHIN_DAYS"},
	{Key: "board.include_needs_testing", EnvVar: "KANBAN_BOARD_INCLUDE_NEEDS_TESTING"},
	{Key: "snapshots.keep", EnvVar: "KANBAN_SNAPSHOTS_KEEP"},
	{Key: "warn.in_progress_days", EnvVar: "KANBAN_WARN_IN_PROGRESS_DAYS"},
	{Key: "warn.review_days", EnvVar: "KANBAN_WARN_REVIEW_DAYS"},
	{Key: "danger.in_progress_days", EnvVar: "KANBAN_DANGER_IN_PROGRESS_DAYS"},
	{Key: "danger.review_days", EnvVar: "KANBAN_DANGER_REVIEW_DAYS"},
	{Key: "roadmap", EnvVar: "KANBAN_ROADMAP"},
	{Key: "port", EnvVar: "KANBAN_PORT"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Key == "launchpad.oauth_token" && viper.GetString(k.Key) != "" {
			val = "********"
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-32s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'kanban config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
