package schema

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	// SettingsFileName is the basename of the tool's settings file.
	SettingsFileName = "cuenim"

	// SettingsEnvPrefix is the env-var prefix viper binds tool settings to.
	SettingsEnvPrefix = "CUENIM"

	systemDirSettingsPath = "/usr/local/etc/cuenim"
	windowsAppDataEnvVar  = "LOCALAPPDATA"
)

// SourceSetting describes one selector or env prefix declared in the
// settings file.
type SourceSetting struct {
	// Path is a literal file path (exclusive with Root/Pattern/Prefix).
	Path string `mapstructure:"path"`
	// Root and Pattern describe a pattern selector.
	Root    string `mapstructure:"root"`
	Pattern string `mapstructure:"pattern"`
	// Syntax selects the pattern grammar: "regex" (default) or "glob".
	Syntax string `mapstructure:"syntax"`
	// Prefix registers an environment-variable prefix.
	Prefix        string `mapstructure:"prefix"`
	CaseSensitive bool   `mapstructure:"case_sensitive"`
	// DotenvFile optionally supplies extra variables for a prefix source.
	DotenvFile string `mapstructure:"dotenv_file"`

	Required    bool `mapstructure:"required"`
	UseFallback bool `mapstructure:"use_fallback"`
}

// Settings holds the tool's own configuration, loaded from cuenim.yaml.
type Settings struct {
	LogLevel     string `mapstructure:"log_level"`
	SnapshotPath string `mapstructure:"snapshot_path"`
	ProjectRoot  string `mapstructure:"project_root"`
	FollowLinks  bool   `mapstructure:"follow_links"`

	// TranslatorBin and DecryptorBin override the external collaborator
	// binaries (default: cue, sops).
	TranslatorBin string `mapstructure:"translator_bin"`
	DecryptorBin  string `mapstructure:"decryptor_bin"`

	Sources []SourceSetting `mapstructure:"sources"`
}

// LoadSettings loads cuenim.yaml from the standard locations, from lower to
// higher priority: system dir, home dir, current directory, ENV vars.
// A missing settings file is not an error; defaults apply.
func LoadSettings() (Settings, error) {
	v := viper.New()
	v.SetConfigName(SettingsFileName)
	v.SetConfigType("yaml")
	v.SetTypeByDefaultValue(true)
	setDefaultSettings(v)

	for _, dir := range settingsSearchDirs() {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(SettingsEnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asConfigNotFound(err, &notFound) {
			return Settings{}, err
		}
		log.Debug("settings file not found, using defaults", "file", SettingsFileName+".yaml")
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func setDefaultSettings(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("follow_links", true)
	v.SetDefault("translator_bin", "cue")
	v.SetDefault("decryptor_bin", "sops")
}

func settingsSearchDirs() []string {
	var dirs []string

	if runtime.GOOS == "windows" {
		if appData := os.Getenv(windowsAppDataEnvVar); appData != "" {
			dirs = append(dirs, filepath.Join(appData, "cuenim"))
		}
	} else {
		dirs = append(dirs, systemDirSettingsPath)
	}

	if home, err := homedir.Dir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".cuenim"))
	}

	dirs = append(dirs, ".")
	return dirs
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return false
}
