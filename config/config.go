package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DefaultDelimiter is the reserved control byte separating messages in
// the export blob.
const DefaultDelimiter = '\x0c'

// Config captures everything the pipeline needs at construction time.
// There are no process-wide defaults baked into the core packages; the
// category tables and paths all travel through this struct.
type Config struct {
	InputPath    string
	MboxPath     string
	SavePath     string
	ContactsPath string
	Delimiter    byte
	LogLevel     string
	LogDir       string

	// Categories maps a sender category to its subfolder under SavePath.
	Categories map[string]string
	// KeyChoices maps a one-letter prompt key to a category.
	KeyChoices map[string]string
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	defaultContacts, err := defaultContactsPath()
	if err != nil {
		return err
	}

	flags := cmd.PersistentFlags()
	flags.String("input", "", "Path to the delimiter-joined export file to archive")
	flags.String("mbox", "", "Path to an .mbox archive used as input instead of an export file")
	flags.String("save-path", "", "Base directory for archived messages (overrides the config file)")
	flags.String("contacts", defaultContacts, "Path to the contact directory YAML file")
	flags.String("delimiter", "\x0c", "Single-byte fragment delimiter (defaults to form feed)")
	flags.String("config", "", "Path to an optional YAML config file")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (in addition to stdout)")

	return nil
}

// LoadConfig merges the parsed Cobra flags with the optional viper
// config file into a validated Config. Flags win over the file, the
// file wins over built-in defaults.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	inputPath, err := flags.GetString("input")
	if err != nil {
		return Config{}, err
	}
	mboxPath, err := flags.GetString("mbox")
	if err != nil {
		return Config{}, err
	}
	savePath, err := flags.GetString("save-path")
	if err != nil {
		return Config{}, err
	}
	contactsPath, err := flags.GetString("contacts")
	if err != nil {
		return Config{}, err
	}
	delimiter, err := flags.GetString("delimiter")
	if err != nil {
		return Config{}, err
	}
	configFile, err := flags.GetString("config")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}

	fileCfg, err := loadFile(configFile)
	if err != nil {
		return Config{}, err
	}

	if savePath == "" {
		savePath = fileCfg.SavePath
	}
	if inputPath == "" {
		inputPath = fileCfg.InputPath
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		InputPath:    filepath.Clean(inputPath),
		MboxPath:     mboxPath,
		SavePath:     savePath,
		ContactsPath: contactsPath,
		LogLevel:     logLevel,
		LogDir:       logDir,
		Categories:   fileCfg.Categories,
		KeyChoices:   fileCfg.KeyChoices,
	}

	if len(delimiter) != 1 {
		return Config{}, fmt.Errorf("--delimiter must be exactly one byte, got %d", len(delimiter))
	}
	cfg.Delimiter = delimiter[0]

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// fileConfig mirrors the optional YAML config file.
type fileConfig struct {
	InputPath  string            `mapstructure:"input_path"`
	SavePath   string            `mapstructure:"save_path"`
	Categories map[string]string `mapstructure:"categories"`
	KeyChoices map[string]string `mapstructure:"key_choices"`
}

// loadFile reads the config file via viper. A missing file yields the
// built-in defaults, mirroring the historical category tables.
func loadFile(path string) (fileConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fileConfig{}, err
		}
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(home, ".mailarc"))
	}

	v.SetDefault("save_path", defaultSavePath())
	v.SetDefault("categories", DefaultCategories())
	v.SetDefault("key_choices", DefaultKeyChoices())

	if err := v.ReadInConfig(); err != nil {
		// A missing default config is fine; an explicitly named one is not.
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		tolerable := path == "" && (errors.As(err, &notFound) || errors.As(err, &pathErr))
		if !tolerable {
			return fileConfig{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg fileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultCategories returns the category-to-subfolder table used when
// no config file overrides it.
func DefaultCategories() map[string]string {
	return map[string]string{
		"Friend":       "Friends",
		"Family":       "Family",
		"Acquaintance": "Acquaintances",
		"Professional": "Professional",
		"Other":        "Other",
		"Delete":       "To delete",
		"Dating":       "Dating",
	}
}

// DefaultKeyChoices returns the prompt-key-to-category table used when
// no config file overrides it.
func DefaultKeyChoices() map[string]string {
	return map[string]string{
		"f": "Friend",
		"m": "Family",
		"a": "Acquaintance",
		"p": "Professional",
		"o": "Other",
		"d": "Delete",
		"x": "Dating",
	}
}

func validateConfig(cfg Config) error {
	if cfg.InputPath == "" || cfg.InputPath == "." {
		return fmt.Errorf("--input is required (or input_path in the config file)")
	}
	if cfg.SavePath == "" {
		return fmt.Errorf("--save-path is required (or save_path in the config file)")
	}
	if cfg.ContactsPath == "" {
		return fmt.Errorf("--contacts is required")
	}
	if len(cfg.Categories) == 0 {
		return fmt.Errorf("category table is empty")
	}
	for key, category := range cfg.KeyChoices {
		if _, ok := cfg.Categories[category]; !ok {
			return fmt.Errorf("key choice %q maps to unknown category %q", key, category)
		}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

func defaultSavePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Documents", "People")
}

func defaultContactsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mailarc", "contacts.yaml"), nil
}
