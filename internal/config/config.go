package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Backend type names used by the tagged-union sections.
const (
	SecretTypeAWS  = "aws"
	SecretTypeFile = "file"
	SecretTypeEnv  = "env"

	StoreTypeS3         = "s3"
	StoreTypeFilesystem = "filesystem"
	StoreTypeMemory     = "memory"

	JournalTypeSQLite = "sqlite"
	JournalTypeMemory = "memory"

	DatePolicyReject = "reject"
	DatePolicySkip   = "skip"
)

// DefaultSecretEnvVar holds the secret JSON for secret type "env".
const DefaultSecretEnvVar = "RECSYNC_SECRET"

// Config represents the main configuration for recsync.
type Config struct {
	BaseDir string `toml:"base_dir"`
	LogDir  string `toml:"log_dir"`

	// Timezone is the IANA zone "today" is computed in. "Local" or empty
	// means the host zone.
	Timezone   string `toml:"timezone"`
	DryRun     bool   `toml:"dry_run"`
	DatePolicy string `toml:"date_policy"` // "reject" (default) or "skip"

	Secret  SecretConfig  `toml:"secret"`
	Source  SourceConfig  `toml:"source"`
	Store   StoreConfig   `toml:"store"`
	Journal JournalConfig `toml:"journal"`
}

// SecretConfig says where the connection secret lives.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SecretConfig struct {
	Type string `toml:"type"` // "aws", "file", or "env"

	// AWS Secrets Manager fields (only used when Type == "aws")
	Name     string `toml:"name,omitempty"`
	Region   string `toml:"region,omitempty"`
	Endpoint string `toml:"endpoint,omitempty"`

	// File fields (only used when Type == "file")
	Path string `toml:"path,omitempty"`

	// Env fields (only used when Type == "env")
	EnvVar string `toml:"env_var,omitempty"`
}

// SourceConfig identifies the kintone app and the field codes to read.
type SourceConfig struct {
	AppID          string       `toml:"app_id"`
	PageSize       int          `toml:"page_size,omitempty"`
	TimeoutSeconds int          `toml:"timeout_seconds,omitempty"`
	Fields         FieldsConfig `toml:"fields"`
}

// FieldsConfig maps each snapshot column to a kintone field code. Empty
// entries fall back to the standard field codes.
type FieldsConfig struct {
	RecordID  string `toml:"record_id,omitempty"`
	Name      string `toml:"name,omitempty"`
	Number    string `toml:"number,omitempty"`
	UpdatedBy string `toml:"updated_by,omitempty"`
	CreatedBy string `toml:"created_by,omitempty"`
	UpdatedAt string `toml:"updated_at,omitempty"`
	CreatedAt string `toml:"created_at,omitempty"`
}

// StoreConfig represents configuration for the snapshot store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"` // "s3", "filesystem", or "memory"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket         string `toml:"s3_bucket,omitempty"`
	S3Key            string `toml:"s3_key,omitempty"`
	S3Region         string `toml:"s3_region,omitempty"`
	S3Endpoint       string `toml:"s3_endpoint,omitempty"`
	S3ForcePathStyle bool   `toml:"s3_force_path_style,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSPath string `toml:"fs_path,omitempty"`
}

// JournalConfig represents configuration for the run journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config rooted at baseDir with local defaults:
// a filesystem snapshot store and a SQLite journal under baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		Timezone:   "Local",
		DatePolicy: DatePolicyReject,
		Secret: SecretConfig{
			Type:   SecretTypeEnv,
			EnvVar: DefaultSecretEnvVar,
		},
		Store: StoreConfig{
			Type:   StoreTypeFilesystem,
			FSPath: filepath.Join(baseDir, "snapshot", "records.csv"),
		},
		Journal: JournalConfig{
			Type:    JournalTypeSQLite,
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DatePolicy, validation.In(DatePolicyReject, DatePolicySkip)),
		validation.Field(&c.Timezone, validation.By(validTimezone)),
	); err != nil {
		return err
	}
	if err := c.Secret.Validate(); err != nil {
		return fmt.Errorf("secret: %w", err)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Journal.Validate(); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// Location returns the time zone named by Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func validTimezone(value any) error {
	tz, _ := value.(string)
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return errors.New("must be an IANA time zone name")
	}
	return nil
}

// Validate validates the secret configuration.
func (c *SecretConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.Required,
			validation.In(SecretTypeAWS, SecretTypeFile, SecretTypeEnv)),
		validation.Field(&c.Name, validation.When(c.Type == SecretTypeAWS, validation.Required)),
		validation.Field(&c.Path, validation.When(c.Type == SecretTypeFile, validation.Required)),
	)
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AppID, validation.Required),
		validation.Field(&c.PageSize, validation.Min(0), validation.Max(500)),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
	)
}

// Timeout returns the per-request timeout, or zero for the client default.
func (c *SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.Required,
			validation.In(StoreTypeS3, StoreTypeFilesystem, StoreTypeMemory)),
		validation.Field(&c.S3Bucket, validation.When(c.Type == StoreTypeS3, validation.Required)),
		validation.Field(&c.S3Key, validation.When(c.Type == StoreTypeS3, validation.Required)),
		validation.Field(&c.FSPath, validation.When(c.Type == StoreTypeFilesystem, validation.Required)),
	)
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.Required, validation.In(JournalTypeSQLite, JournalTypeMemory)),
		validation.Field(&c.DataDir, validation.When(c.Type == JournalTypeSQLite, validation.Required)),
	)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. It refuses to overwrite an
// existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
