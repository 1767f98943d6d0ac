package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"YellowbellPOS/app/security"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is used when no path is given
const DefaultConfigFile = "config.json"

// Mirror targets
const (
	MirrorTargetPostgres = "postgres"
	MirrorTargetSheets   = "sheets"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Business BusinessConfig `json:"business" toml:"business" yaml:"business"`
	Store    StoreConfig    `json:"store" toml:"store" yaml:"store"`
	Server   ServerConfig   `json:"server" toml:"server" yaml:"server"`
	Mirror   MirrorConfig   `json:"mirror" toml:"mirror" yaml:"mirror"`
	Events   EventsConfig   `json:"events" toml:"events" yaml:"events"`
	Logging  LoggingConfig  `json:"logging" toml:"logging" yaml:"logging"`
}

// BusinessConfig holds business information printed on slips
type BusinessConfig struct {
	Name    string `json:"name" toml:"name" yaml:"name"`
	Address string `json:"address" toml:"address" yaml:"address"`
	Phone   string `json:"phone" toml:"phone" yaml:"phone"`
}

// StoreConfig locates the local database
type StoreConfig struct {
	DataDir string `json:"data_dir" toml:"data_dir" yaml:"data_dir"`
	DBFile  string `json:"db_file" toml:"db_file" yaml:"db_file"`
}

// DBPath joins the data directory and database file name
func (s StoreConfig) DBPath() string {
	return filepath.Join(s.DataDir, s.DBFile)
}

// ServerConfig holds the live feed settings
type ServerConfig struct {
	Port         int  `json:"port" toml:"port" yaml:"port"`
	AnnounceMDNS bool `json:"announce_mdns" toml:"announce_mdns" yaml:"announce_mdns"`
}

// MirrorConfig holds the remote mirror settings
type MirrorConfig struct {
	Enabled        bool           `json:"enabled" toml:"enabled" yaml:"enabled"`
	Target         string         `json:"target" toml:"target" yaml:"target"`
	QueueSize      int            `json:"queue_size" toml:"queue_size" yaml:"queue_size"`
	TimeoutSeconds int            `json:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds"`
	Postgres       DatabaseConfig `json:"postgres" toml:"postgres" yaml:"postgres"`
	Sheets         SheetsConfig   `json:"sheets" toml:"sheets" yaml:"sheets"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string `json:"url,omitempty" toml:"url,omitempty" yaml:"url,omitempty"`
	Host     string `json:"host" toml:"host" yaml:"host"`
	Port     int    `json:"port" toml:"port" yaml:"port"`
	Database string `json:"database" toml:"database" yaml:"database"`
	Username string `json:"username" toml:"username" yaml:"username"`
	Password string `json:"password" toml:"password" yaml:"password"`
	SSLMode  string `json:"ssl_mode" toml:"ssl_mode" yaml:"ssl_mode"`
}

// SheetsConfig holds Google Sheets mirror settings
type SheetsConfig struct {
	SpreadsheetID   string `json:"spreadsheet_id" toml:"spreadsheet_id" yaml:"spreadsheet_id"`
	SheetName       string `json:"sheet_name" toml:"sheet_name" yaml:"sheet_name"`
	CredentialsJSON string `json:"credentials_json" toml:"credentials_json" yaml:"credentials_json"`
}

// EventsConfig holds the NATS event fan-out settings. An empty URL disables it.
type EventsConfig struct {
	NATSURL       string `json:"nats_url" toml:"nats_url" yaml:"nats_url"`
	SubjectPrefix string `json:"subject_prefix" toml:"subject_prefix" yaml:"subject_prefix"`
}

// LoggingConfig holds log file settings
type LoggingConfig struct {
	Dir      string `json:"dir" toml:"dir" yaml:"dir"`
	KeepDays int    `json:"keep_days" toml:"keep_days" yaml:"keep_days"`
}

// Default returns the configuration used when no file exists
func Default() *AppConfig {
	return &AppConfig{
		Business: BusinessConfig{
			Name: "Yellowbell Roast Co.",
		},
		Store: StoreConfig{
			DataDir: "data",
			DBFile:  "yellowbell.db",
		},
		Server: ServerConfig{
			Port:         8080,
			AnnounceMDNS: true,
		},
		Mirror: MirrorConfig{
			Enabled:        false,
			Target:         MirrorTargetPostgres,
			QueueSize:      64,
			TimeoutSeconds: 10,
			Postgres: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "yellowbell_mirror",
				Username: "postgres",
				SSLMode:  "disable",
			},
			Sheets: SheetsConfig{
				SheetName: "Mirror",
			},
		},
		Events: EventsConfig{
			SubjectPrefix: "yellowbell",
		},
		Logging: LoggingConfig{
			Dir:      "logs",
			KeepDays: 30,
		},
	}
}

// Load reads the configuration at path, picking the format from its extension
// (.toml, .yaml/.yml, anything else JSON). A missing file yields the defaults.
// A .env file next to the process and YB_* variables override the file.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("could not read config file: %w", err)
	default:
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.decryptSensitiveFields(); err != nil {
		return nil, fmt.Errorf("could not decrypt sensitive fields: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path after encrypting sensitive fields
func Save(path string, cfg *AppConfig) error {
	if path == "" {
		path = DefaultConfigFile
	}

	cfgCopy := *cfg
	if err := cfgCopy.encryptSensitiveFields(); err != nil {
		return fmt.Errorf("could not encrypt sensitive fields: %w", err)
	}

	data, err := marshal(path, &cfgCopy)
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the app cannot run with
func (cfg *AppConfig) Validate() error {
	if cfg.Store.DBFile == "" {
		return fmt.Errorf("store.db_file is required")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}
	if cfg.Mirror.Enabled {
		switch cfg.Mirror.Target {
		case MirrorTargetPostgres:
		case MirrorTargetSheets:
			if cfg.Mirror.Sheets.SpreadsheetID == "" {
				return fmt.Errorf("mirror.sheets.spreadsheet_id is required for the sheets mirror")
			}
		default:
			return fmt.Errorf("unknown mirror target %q", cfg.Mirror.Target)
		}
	}
	return nil
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func unmarshal(path string, data []byte, cfg *AppConfig) error {
	switch format(path) {
	case "toml":
		return toml.Unmarshal(data, cfg)
	case "yaml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func marshal(path string, cfg *AppConfig) ([]byte, error) {
	switch format(path) {
	case "toml":
		return toml.Marshal(cfg)
	case "yaml":
		return yaml.Marshal(cfg)
	default:
		return json.MarshalIndent(cfg, "", "  ")
	}
}

func (cfg *AppConfig) applyEnv() {
	if v := os.Getenv("YB_DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("YB_DB_FILE"); v != "" {
		cfg.Store.DBFile = v
	}
	if v, err := strconv.Atoi(os.Getenv("YB_PORT")); err == nil {
		cfg.Server.Port = v
	}
	if v, err := strconv.ParseBool(os.Getenv("YB_MIRROR_ENABLED")); err == nil {
		cfg.Mirror.Enabled = v
	}
	if v := os.Getenv("YB_MIRROR_TARGET"); v != "" {
		cfg.Mirror.Target = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Mirror.Postgres.URL = v
	}
	if v := os.Getenv("YB_NATS_URL"); v != "" {
		cfg.Events.NATSURL = v
	}
	if v := os.Getenv("YB_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
}

// encryptSensitiveFields encrypts sensitive configuration fields
func (cfg *AppConfig) encryptSensitiveFields() error {
	var err error

	if cfg.Mirror.Postgres.Password != "" {
		cfg.Mirror.Postgres.Password, err = security.Encrypt(cfg.Mirror.Postgres.Password)
		if err != nil {
			return fmt.Errorf("could not encrypt database password: %w", err)
		}
	}

	if cfg.Mirror.Sheets.CredentialsJSON != "" {
		cfg.Mirror.Sheets.CredentialsJSON, err = security.Encrypt(cfg.Mirror.Sheets.CredentialsJSON)
		if err != nil {
			return fmt.Errorf("could not encrypt sheets credentials: %w", err)
		}
	}

	return nil
}

// decryptSensitiveFields decrypts sensitive configuration fields.
// Values that do not decrypt are kept as plain text.
func (cfg *AppConfig) decryptSensitiveFields() error {
	if cfg.Mirror.Postgres.Password != "" {
		if decrypted, err := security.Decrypt(cfg.Mirror.Postgres.Password); err == nil {
			cfg.Mirror.Postgres.Password = decrypted
		}
	}

	if cfg.Mirror.Sheets.CredentialsJSON != "" {
		if decrypted, err := security.Decrypt(cfg.Mirror.Sheets.CredentialsJSON); err == nil {
			cfg.Mirror.Sheets.CredentialsJSON = decrypted
		}
	}

	return nil
}
