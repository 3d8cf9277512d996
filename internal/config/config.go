package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harvest-labs/harvest/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Placeholder substituted with the template version in archive templates.
const VersionPlaceholder = "{version}"

// Settings holds everything a bootstrap run needs from the process-wide
// configuration. It is resolved once and passed explicitly to the pipeline.
type Settings struct {
	TemplateVersion  string `mapstructure:"template_version"`
	ArchiveURL       string `mapstructure:"archive_url"`
	ArchiveName      string `mapstructure:"archive_name"`
	MetadataPath     string `mapstructure:"metadata_path"`
	MetadataSection  string `mapstructure:"metadata_section"`
	PythonCommand    string `mapstructure:"python_command"`
	EnvCommand       string `mapstructure:"env_command"`
	InstallCommand   string `mapstructure:"install_command"`
	CollectCommand   string `mapstructure:"collect_command"`
	DatabaseCommand  string `mapstructure:"database_command"`
	NoInputFlag      string `mapstructure:"noinput_flag"`
	ManageScript     string `mapstructure:"manage_script"`
	RunServerCommand string `mapstructure:"runserver_command"`
	ServerURL        string `mapstructure:"server_url"`
}

var defaults = map[string]string{
	"template_version":  "2.1.2",
	"archive_url":       "https://github.com/" + branding.TemplateRepo() + "/archive/" + VersionPlaceholder + ".zip",
	"archive_name":      "harvest-template-" + VersionPlaceholder + ".zip",
	"metadata_path":     ".harvest",
	"metadata_section":  "harvest",
	"python_command":    "python",
	"env_command":       "virtualenv",
	"install_command":   "pip install -r requirements.txt",
	"collect_command":   "make collect",
	"database_command":  "./bin/manage.py syncdb --migrate",
	"noinput_flag":      "--noinput",
	"manage_script":     "bin/manage.py",
	"runserver_command": "./bin/manage.py runserver",
	"server_url":        "http://localhost:8000",
}

// Keys returns every known configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a recognised configuration key.
func IsKnownKey(key string) bool {
	_, ok := defaults[key]
	return ok
}

// Defaults returns Settings populated only from built-in defaults.
func Defaults() *Settings {
	return &Settings{
		TemplateVersion:  defaults["template_version"],
		ArchiveURL:       defaults["archive_url"],
		ArchiveName:      defaults["archive_name"],
		MetadataPath:     defaults["metadata_path"],
		MetadataSection:  defaults["metadata_section"],
		PythonCommand:    defaults["python_command"],
		EnvCommand:       defaults["env_command"],
		InstallCommand:   defaults["install_command"],
		CollectCommand:   defaults["collect_command"],
		DatabaseCommand:  defaults["database_command"],
		NoInputFlag:      defaults["noinput_flag"],
		ManageScript:     defaults["manage_script"],
		RunServerCommand: defaults["runserver_command"],
		ServerURL:        defaults["server_url"],
	}
}

// Dir returns the path to the harvest config directory (~/.harvest/).
// The HARVEST_HOME environment variable overrides it.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.harvest/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper from the default config file and the environment.
func Load() error {
	return LoadFile(FilePath())
}

// LoadFile initializes Viper from path and the environment. A missing file is
// not an error; a file that fails schema validation is.
func LoadFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := CheckFile(path); err != nil {
			return err
		}
	}

	viper.SetConfigFile(path)
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
	return nil
}

// Resolve returns the effective Settings (file, environment, defaults).
// Load or LoadFile must have been called first.
func Resolve() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return &s, nil
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(Keys(), ", "))
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = FilePath()
	}

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Fields splits a configured command line into argv.
func Fields(cmdline string) []string {
	return strings.Fields(cmdline)
}

// Expand substitutes version into a template containing VersionPlaceholder.
func Expand(template, version string) string {
	return strings.ReplaceAll(template, VersionPlaceholder, version)
}
