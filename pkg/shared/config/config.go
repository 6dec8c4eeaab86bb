package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config is the global crnow configuration read from YAML.
type Config struct {
	Crnow      Crnow      `yaml:"crnow"`
	Logger     Logger     `yaml:"logger"`
	HTTPClient HTTPClient `yaml:"http_client"`
	GitClient  GitClient  `yaml:"git_client"`
	Instances  []Instance `yaml:"instances"`
	Review     Review     `yaml:"review"`
	Rules      Rules      `yaml:"rules"`
	Publish    Publish    `yaml:"publish"`
}

// Crnow holds the folders crnow works with.
type Crnow struct {
	HomeFolder      string `yaml:"home_folder"`
	RulesFolder     string `yaml:"rules_folder"`
	ResultsFolder   string `yaml:"results_folder"`
	TemplatesFolder string `yaml:"templates_folder"`
}

// Logger holds logging settings.
type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

// HTTPClient holds settings of the client used to talk to the instance.
type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

// TLSClientConfig holds TLS verification settings.
type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

// Proxy holds proxy settings.
type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GitClient holds settings of the git client used to sync rules.
type GitClient struct {
	Depth       int           `yaml:"depth"`
	InsecureTLS *bool         `yaml:"insecure_tls"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Instance describes one ServiceNow instance crnow can review.
type Instance struct {
	Name     string `yaml:"name" validate:"required"`
	URL      string `yaml:"url" validate:"omitempty,url"`
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password"`
	Default  bool   `yaml:"default"`
}

// Review holds settings of the review pipeline.
type Review struct {
	MaxDeltaDays     int      `yaml:"max_delta_days"`
	PageSize         int      `yaml:"page_size"`
	Concurrency      int      `yaml:"concurrency"`
	SupportedClasses []string `yaml:"supported_classes"`
	TagsAPI          string   `yaml:"tags_api"`
}

// Rules holds the location of the rules repository.
type Rules struct {
	Repository string `yaml:"repository"`
	Branch     string `yaml:"branch"`
	AuthType   string `yaml:"auth_type"`
	SSHKey     string `yaml:"ssh_key"`
}

// Publish holds settings for publishing written reports.
type Publish struct {
	S3 S3 `yaml:"s3"`
}

// S3 holds S3 publishing settings.
type S3 struct {
	Region string `yaml:"region"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// ValidateConfigPath checks that the path points to a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the configuration from configPath.
// A missing file yields an empty configuration, defaults are applied by ValidateConfig.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	if err := LoadYAML(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
	}

	return cfg, nil
}
