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
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "nightfix"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage nightfix configuration.

Running bare 'nightfix config' is the same as 'nightfix config show'.`,
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
const configTemplate = `# nightfix configuration
# See: nightfix config show (for effective values and sources)

# Repositories to review nightly, as owner/name
repos:
#  - yourname/yourrepo

# SQLite database path (default: ~/.config/nightfix/nightfix.db)
# db_path: {{ .DBPath }}

# Where repositories are cloned (default: ~/.config/nightfix/clones)
# clone_dir: {{ .CloneDir }}

# GitHub commit identity
github:
  username: "{{ .GitHubUsername }}"
  email: "{{ .GitHubEmail }}"

# Anthropic API
anthropic:
  # Or set NIGHTFIX_ANTHROPIC_API_KEY
  api_key: ""
  model: "{{ .AnthropicModel }}"

# Nightly schedule (24h clock, in 'timezone')
schedule:
  start: "{{ .ScheduleStart }}"
  deadline: "{{ .ScheduleDeadline }}"
  report: "{{ .ScheduleReport }}"

timezone: "{{ .Timezone }}"

# Concurrent repository workers (default: 3)
max_workers: {{ .MaxWorkers }}

# Morning report delivery: discord or teams
notify:
  channel: "{{ .NotifyChannel }}"
  webhook_url: ""

# Run the repo's own test suite after applying a fix (default: false)
run_tests: {{ .RunTests }}
# test_timeout: 5m
`

type configTemplateData struct {
	DBPath           string
	CloneDir         string
	GitHubUsername   string
	GitHubEmail      string
	AnthropicModel   string
	ScheduleStart    string
	ScheduleDeadline string
	ScheduleReport   string
	Timezone         string
	MaxWorkers       int
	NotifyChannel    string
	RunTests         bool
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

	data := configTemplateData{
		DBPath:           viper.GetString("db_path"),
		CloneDir:         viper.GetString("clone_dir"),
		GitHubUsername:   viper.GetString("github.username"),
		GitHubEmail:      viper.GetString("github.email"),
		AnthropicModel:   viper.GetString("anthropic.model"),
		ScheduleStart:    viper.GetString("schedule.start"),
		ScheduleDeadline: viper.GetString("schedule.deadline"),
		ScheduleReport:   viper.GetString("schedule.report"),
		Timezone:         viper.GetString("timezone"),
		MaxWorkers:       viper.GetInt("max_workers"),
		NotifyChannel:    viper.GetString("notify.channel"),
		RunTests:         viper.GetBool("run_tests"),
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
	{Key: "repos", EnvVar: "NIGHTFIX_REPOS"},
	{Key: "db_path", EnvVar: "NIGHTFIX_DB_PATH"},
	{Key: "clone_dir", EnvVar: "NIGHTFIX_CLONE_DIR"},
	{Key: "github.username", EnvVar: "NIGHTFIX_GITHUB_USERNAME"},
	{Key: "github.email", EnvVar: "NIGHTFIX_GITHUB_EMAIL"},
	{Key: "anthropic.model", EnvVar: "NIGHTFIX_ANTHROPIC_MODEL"},
	{Key: "schedule.start", EnvVar: "NIGHTFIX_SCHEDULE_START"},
	{Key: "schedule.deadline", EnvVar: "NIGHTFIX_SCHEDULE_DEADLINE"},
	{Key: "schedule.report", EnvVar: "NIGHTFIX_SCHEDULE_REPORT"},
	{Key: "timezone", EnvVar: "NIGHTFIX_TIMEZONE"},
	{Key: "max_workers", EnvVar: "NIGHTFIX_MAX_WORKERS"},
	{Key: "notify.channel", EnvVar: "NIGHTFIX_NOTIFY_CHANNEL"},
	{Key: "run_tests", EnvVar: "NIGHTFIX_RUN_TESTS"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
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
		return fmt.Errorf("$EDITOR is not set — set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'nightfix config init' first)", cfgPath)
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
