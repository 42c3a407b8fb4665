/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete tool configuration
type Config struct {
	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Default connection parameters per engine
	Defaults DefaultsConfig `yaml:"defaults"`

	// Result size limits
	Limits LimitsConfig `yaml:"limits"`

	// Saved connections file path
	ConnectionsFile string `yaml:"connections_file"`

	// Secret file path (for the saved-connections encryption key)
	SecretFile string `yaml:"secret_file"`

	// Log level: none, info, debug, trace
	LogLevel string `yaml:"log_level"`
}

// LLMConfig holds query synthesis provider settings
type LLMConfig struct {
	Provider             string `yaml:"provider"`                // "anthropic", "openai", "gemini", "openrouter", or "local"
	Model                string `yaml:"model"`                   // Provider-specific model name (empty = provider default)
	AnthropicAPIKey      string `yaml:"anthropic_api_key"`       // API key for Anthropic (direct - discouraged, use api_key_file or env var instead)
	AnthropicAPIKeyFile  string `yaml:"anthropic_api_key_file"`  // Path to file containing Anthropic API key
	OpenAIAPIKey         string `yaml:"openai_api_key"`          // API key for OpenAI (direct - discouraged, use api_key_file or env var instead)
	OpenAIAPIKeyFile     string `yaml:"openai_api_key_file"`     // Path to file containing OpenAI API key
	GeminiAPIKey         string `yaml:"gemini_api_key"`          // API key for Google Gemini
	GeminiAPIKeyFile     string `yaml:"gemini_api_key_file"`     // Path to file containing Gemini API key
	OpenRouterAPIKey     string `yaml:"openrouter_api_key"`      // API key for OpenRouter
	OpenRouterAPIKeyFile string `yaml:"openrouter_api_key_file"` // Path to file containing OpenRouter API key
	LocalURL             string `yaml:"local_url"`               // Base URL for a local OpenAI-compatible service (default: http://localhost:11434)
}

// DefaultsConfig holds per-engine default connection parameters
type DefaultsConfig struct {
	SQLite   SQLiteDefaults  `yaml:"sqlite"`
	Postgres NetworkDefaults `yaml:"postgres"`
	MySQL    NetworkDefaults `yaml:"mysql"`
	MSSQL    NetworkDefaults `yaml:"mssql"`
}

// SQLiteDefaults holds the default SQLite connection parameters
type SQLiteDefaults struct {
	Path string `yaml:"path"` // Default database file path
}

// NetworkDefaults holds default parameters for a networked engine
type NetworkDefaults struct {
	Host     string `yaml:"host"`     // Default host (default: localhost)
	Port     int    `yaml:"port"`     // Default port (0 = engine default)
	Database string `yaml:"database"` // Default database name
	User     string `yaml:"user"`     // Default user
	SSLMode  string `yaml:"sslmode"`  // Postgres only: disable, require, verify-ca, verify-full (default: prefer)
}

// LimitsConfig holds result size limits
type LimitsConfig struct {
	MaxRowsPreview int `yaml:"max_rows_preview"` // Rows shown inline for a query result (default: 10)
	MaxRowsExport  int `yaml:"max_rows_export"`  // Rows written by an export (default: 10000)
}

// CLIFlags represents command line flag values and whether they were explicitly set
type CLIFlags struct {
	ConfigFileSet bool
	ConfigFile    string

	Provider    string
	ProviderSet bool
	Model       string
	ModelSet    bool
	LocalURL    string
	LocalURLSet bool

	MaxRowsPreview    int
	MaxRowsPreviewSet bool
	MaxRowsExport     int
	MaxRowsExportSet  bool

	LogLevel    string
	LogLevelSet bool
}

// LoadConfig loads configuration with proper priority:
// 1. Command line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Hard-coded defaults (lowest priority)
func LoadConfig(configPath string, cliFlags CLIFlags) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Load config file if it exists
	if configPath != "" {
		fileCfg, err := loadConfigFile(configPath)
		if err != nil {
			// If the file was explicitly specified, error out
			if cliFlags.ConfigFileSet {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
			// Otherwise just use defaults (file may not exist and that's ok)
		} else {
			mergeConfig(cfg, fileCfg)
		}
	}

	// Override with environment variables
	applyEnvironmentVariables(cfg)

	// Override with command line flags (highest priority)
	applyCLIFlags(cfg, cliFlags)

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns configuration with hard-coded defaults
func defaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "", // Provider picks its own default
			LocalURL: "http://localhost:11434",
		},
		Defaults: DefaultsConfig{
			SQLite: SQLiteDefaults{
				Path: "",
			},
			Postgres: NetworkDefaults{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "prefer",
			},
			MySQL: NetworkDefaults{
				Host: "localhost",
				Port: 3306,
			},
			MSSQL: NetworkDefaults{
				Host: "localhost",
				Port: 1433,
			},
		},
		Limits: LimitsConfig{
			MaxRowsPreview: 10,
			MaxRowsExport:  10000,
		},
		ConnectionsFile: "", // Resolved to the default path by the caller
		SecretFile:      "",
		LogLevel:        "none",
	}
}

// loadConfigFile loads configuration from a YAML file
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// mergeConfig merges source config into dest, only overriding non-zero values
func mergeConfig(dest, src *Config) {
	// LLM
	if src.LLM.Provider != "" {
		dest.LLM.Provider = src.LLM.Provider
	}
	if src.LLM.Model != "" {
		dest.LLM.Model = src.LLM.Model
	}
	if src.LLM.AnthropicAPIKey != "" {
		dest.LLM.AnthropicAPIKey = src.LLM.AnthropicAPIKey
	}
	if src.LLM.AnthropicAPIKeyFile != "" {
		dest.LLM.AnthropicAPIKeyFile = src.LLM.AnthropicAPIKeyFile
	}
	if src.LLM.OpenAIAPIKey != "" {
		dest.LLM.OpenAIAPIKey = src.LLM.OpenAIAPIKey
	}
	if src.LLM.OpenAIAPIKeyFile != "" {
		dest.LLM.OpenAIAPIKeyFile = src.LLM.OpenAIAPIKeyFile
	}
	if src.LLM.GeminiAPIKey != "" {
		dest.LLM.GeminiAPIKey = src.LLM.GeminiAPIKey
	}
	if src.LLM.GeminiAPIKeyFile != "" {
		dest.LLM.GeminiAPIKeyFile = src.LLM.GeminiAPIKeyFile
	}
	if src.LLM.OpenRouterAPIKey != "" {
		dest.LLM.OpenRouterAPIKey = src.LLM.OpenRouterAPIKey
	}
	if src.LLM.OpenRouterAPIKeyFile != "" {
		dest.LLM.OpenRouterAPIKeyFile = src.LLM.OpenRouterAPIKeyFile
	}
	if src.LLM.LocalURL != "" {
		dest.LLM.LocalURL = src.LLM.LocalURL
	}

	// Defaults
	if src.Defaults.SQLite.Path != "" {
		dest.Defaults.SQLite.Path = src.Defaults.SQLite.Path
	}
	mergeNetworkDefaults(&dest.Defaults.Postgres, &src.Defaults.Postgres)
	mergeNetworkDefaults(&dest.Defaults.MySQL, &src.Defaults.MySQL)
	mergeNetworkDefaults(&dest.Defaults.MSSQL, &src.Defaults.MSSQL)

	// Limits
	if src.Limits.MaxRowsPreview != 0 {
		dest.Limits.MaxRowsPreview = src.Limits.MaxRowsPreview
	}
	if src.Limits.MaxRowsExport != 0 {
		dest.Limits.MaxRowsExport = src.Limits.MaxRowsExport
	}

	if src.ConnectionsFile != "" {
		dest.ConnectionsFile = src.ConnectionsFile
	}
	if src.SecretFile != "" {
		dest.SecretFile = src.SecretFile
	}
	if src.LogLevel != "" {
		dest.LogLevel = src.LogLevel
	}
}

func mergeNetworkDefaults(dest, src *NetworkDefaults) {
	if src.Host != "" {
		dest.Host = src.Host
	}
	if src.Port != 0 {
		dest.Port = src.Port
	}
	if src.Database != "" {
		dest.Database = src.Database
	}
	if src.User != "" {
		dest.User = src.User
	}
	if src.SSLMode != "" {
		dest.SSLMode = src.SSLMode
	}
}

// setStringFromEnv sets a string value from an environment variable if set
func setStringFromEnv(dest *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dest = val
	}
}

// setStringFromEnvWithFallback tries multiple environment variables in order
func setStringFromEnvWithFallback(dest *string, keys ...string) {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			*dest = val
			return
		}
	}
}

// setIntFromEnv sets an int value from an environment variable if set and valid
func setIntFromEnv(dest *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dest = n
		}
	}
}

// applyEnvironmentVariables overrides config values from the environment
func applyEnvironmentVariables(cfg *Config) {
	setStringFromEnv(&cfg.LLM.Provider, "DBCHAT_PROVIDER")
	setStringFromEnv(&cfg.LLM.Model, "DBCHAT_MODEL")

	// Provider keys: tool-specific variables win, the conventional
	// provider variables act as a fallback
	setStringFromEnvWithFallback(&cfg.LLM.AnthropicAPIKey, "DBCHAT_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	setStringFromEnvWithFallback(&cfg.LLM.OpenAIAPIKey, "DBCHAT_OPENAI_API_KEY", "OPENAI_API_KEY")
	setStringFromEnvWithFallback(&cfg.LLM.GeminiAPIKey, "DBCHAT_GEMINI_API_KEY", "GEMINI_API_KEY")
	setStringFromEnvWithFallback(&cfg.LLM.OpenRouterAPIKey, "DBCHAT_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	setStringFromEnvWithFallback(&cfg.LLM.LocalURL, "DBCHAT_LOCAL_URL", "OLLAMA_URL")

	setStringFromEnv(&cfg.Defaults.SQLite.Path, "DBCHAT_SQLITE_PATH")
	applyNetworkEnv(&cfg.Defaults.Postgres, "DBCHAT_PG")
	applyNetworkEnv(&cfg.Defaults.MySQL, "DBCHAT_MYSQL")
	applyNetworkEnv(&cfg.Defaults.MSSQL, "DBCHAT_MSSQL")

	setIntFromEnv(&cfg.Limits.MaxRowsPreview, "DBCHAT_MAX_ROWS_PREVIEW")
	setIntFromEnv(&cfg.Limits.MaxRowsExport, "DBCHAT_MAX_ROWS_EXPORT")

	setStringFromEnv(&cfg.ConnectionsFile, "DBCHAT_CONNECTIONS_FILE")
	setStringFromEnv(&cfg.SecretFile, "DBCHAT_SECRET_FILE")
	setStringFromEnv(&cfg.LogLevel, "DBCHAT_LOG_LEVEL")
}

func applyNetworkEnv(dest *NetworkDefaults, prefix string) {
	setStringFromEnv(&dest.Host, prefix+"_HOST")
	setIntFromEnv(&dest.Port, prefix+"_PORT")
	setStringFromEnv(&dest.Database, prefix+"_DATABASE")
	setStringFromEnv(&dest.User, prefix+"_USER")
	if prefix == "DBCHAT_PG" {
		setStringFromEnv(&dest.SSLMode, prefix+"_SSLMODE")
	}
}

// applyCLIFlags overrides config values with explicitly set command line flags
func applyCLIFlags(cfg *Config, flags CLIFlags) {
	if flags.ProviderSet {
		cfg.LLM.Provider = flags.Provider
	}
	if flags.ModelSet {
		cfg.LLM.Model = flags.Model
	}
	if flags.LocalURLSet {
		cfg.LLM.LocalURL = flags.LocalURL
	}
	if flags.MaxRowsPreviewSet {
		cfg.Limits.MaxRowsPreview = flags.MaxRowsPreview
	}
	if flags.MaxRowsExportSet {
		cfg.Limits.MaxRowsExport = flags.MaxRowsExport
	}
	if flags.LogLevelSet {
		cfg.LogLevel = flags.LogLevel
	}
}

// validateConfig checks the final configuration for consistency
func validateConfig(cfg *Config) error {
	switch cfg.LLM.Provider {
	case "anthropic", "openai", "gemini", "openrouter", "local":
	default:
		return fmt.Errorf("unknown provider %q (expected anthropic, openai, gemini, openrouter, or local)", cfg.LLM.Provider)
	}

	if cfg.Limits.MaxRowsPreview < 1 {
		return fmt.Errorf("max_rows_preview must be at least 1 (got %d)", cfg.Limits.MaxRowsPreview)
	}
	if cfg.Limits.MaxRowsExport < 1 {
		return fmt.Errorf("max_rows_export must be at least 1 (got %d)", cfg.Limits.MaxRowsExport)
	}

	if cfg.LLM.Provider == "local" && cfg.LLM.LocalURL == "" {
		return fmt.Errorf("local provider requires a service URL")
	}

	return nil
}

// APIKey resolves the API key for a provider: a directly configured key
// wins, otherwise the provider's key file is read. Returns "" when
// neither is set (the local provider needs no key).
func (cfg *Config) APIKey(provider string) (string, error) {
	var direct, file string
	switch provider {
	case "anthropic":
		direct, file = cfg.LLM.AnthropicAPIKey, cfg.LLM.AnthropicAPIKeyFile
	case "openai":
		direct, file = cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIAPIKeyFile
	case "gemini":
		direct, file = cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiAPIKeyFile
	case "openrouter":
		direct, file = cfg.LLM.OpenRouterAPIKey, cfg.LLM.OpenRouterAPIKeyFile
	case "local":
		return "", nil
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}

	if direct != "" {
		return direct, nil
	}
	return readAPIKeyFromFile(file)
}

// KeyFile returns the configured key file path for a provider, or "".
func (cfg *Config) KeyFile(provider string) string {
	switch provider {
	case "anthropic":
		return cfg.LLM.AnthropicAPIKeyFile
	case "openai":
		return cfg.LLM.OpenAIAPIKeyFile
	case "gemini":
		return cfg.LLM.GeminiAPIKeyFile
	case "openrouter":
		return cfg.LLM.OpenRouterAPIKeyFile
	default:
		return ""
	}
}

// readAPIKeyFromFile reads an API key from a file
// Returns the key with whitespace trimmed, or empty string if the file doesn't exist or is empty
func readAPIKeyFromFile(filePath string) (string, error) {
	if filePath == "" {
		return "", nil
	}

	// Expand tilde to home directory
	if filePath[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(homeDir, filePath[1:])
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return "", nil // File doesn't exist, return empty (not an error)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read API key file %s: %w", filePath, err)
	}

	return strings.TrimSpace(string(data)), nil
}

// GetDefaultConfigPath returns the default config file path
// Searches ~/.config/dbchat/ first, then the binary directory
func GetDefaultConfigPath(binaryPath string) string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".config", "dbchat", "dbchat.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}

	dir := filepath.Dir(binaryPath)
	return filepath.Join(dir, "dbchat.yaml")
}

// GetDefaultConnectionsPath returns the default saved-connections file path
func GetDefaultConnectionsPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "dbchat-connections.yaml"
	}
	return filepath.Join(homeDir, ".config", "dbchat", "connections.yaml")
}

// GetDefaultSecretPath returns the default secret file path
func GetDefaultSecretPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "dbchat.secret"
	}
	return filepath.Join(homeDir, ".config", "dbchat", "dbchat.secret")
}

// ConfigFileExists checks if a config file exists at the given path
func ConfigFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
