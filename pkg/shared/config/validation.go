package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/scan-io-git/crnow/pkg/shared/files"
)

var validate = validator.New()

// defaultSupportedClasses mirrors the script tables the companion scoped app grants access to.
var defaultSupportedClasses = []string{
	"sys_script_include",
	"sys_script_client",
	"sys_script",
}

// ValidateConfig checks if the global configurations have valid values and applies defaults.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateCrnowConfig(cfg); err != nil {
		return fmt.Errorf("YAML global config: crnow directive is invalid: %w", err)
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateGitConfig(&cfg.GitClient); err != nil {
		return fmt.Errorf("YAML global config: git_client directive is invalid: %w", err)
	}
	if err := ValidateReviewConfig(&cfg.Review); err != nil {
		return fmt.Errorf("YAML global config: review directive is invalid: %w", err)
	}
	if err := ValidateInstances(cfg.Instances); err != nil {
		return fmt.Errorf("YAML global config: instances directive is invalid: %w", err)
	}
	if cfg.Rules.Repository == "" {
		cfg.Rules.Repository = DefaultRulesRepository
	}
	return nil
}

// ValidateCrnowConfig resolves the crnow folders from environment variables or defaults.
func ValidateCrnowConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("crnow configuration is nil")
	}
	if err := updateHome(cfg); err != nil {
		return fmt.Errorf("failed to update home folder: %w", err)
	}
	if err := updateFolder(&cfg.Crnow.RulesFolder, "CRNOW_RULES_FOLDER", "rules", cfg); err != nil {
		return fmt.Errorf("failed to update rules folder: %w", err)
	}
	if err := updateFolder(&cfg.Crnow.ResultsFolder, "CRNOW_RESULTS_FOLDER", "results", cfg); err != nil {
		return fmt.Errorf("failed to update results folder: %w", err)
	}
	if err := updateFolder(&cfg.Crnow.TemplatesFolder, "CRNOW_TEMPLATES_FOLDER", "templates", cfg); err != nil {
		return fmt.Errorf("failed to update templates folder: %w", err)
	}
	return nil
}

// ValidateGitConfig checks if the Git configurations have valid values.
func ValidateGitConfig(gitConfig *GitClient) error {
	if gitConfig == nil {
		return fmt.Errorf("git configuration is nil")
	}

	if err := validateDuration(gitConfig.Timeout, "timeout", 1*time.Hour); err != nil {
		return err
	}
	if gitConfig.Depth < 0 {
		return fmt.Errorf("depth cannot be negative: %d", gitConfig.Depth)
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 10*time.Minute); err != nil {
			return err
		}
	}

	if err := validateProxy(&httpConfig.Proxy); err != nil {
		return err
	}

	return nil
}

// ValidateReviewConfig checks the review settings and fills in defaults.
func ValidateReviewConfig(review *Review) error {
	if review == nil {
		return fmt.Errorf("review configuration is nil")
	}
	if review.MaxDeltaDays < 0 {
		return fmt.Errorf("max_delta_days cannot be negative: %d", review.MaxDeltaDays)
	}
	if review.PageSize < 0 || review.PageSize > 10000 {
		return fmt.Errorf("page_size must be between 0 and 10000: %d", review.PageSize)
	}
	if review.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative: %d", review.Concurrency)
	}

	review.MaxDeltaDays = SetThen(review.MaxDeltaDays, DefaultMaxDeltaDays)
	review.PageSize = SetThen(review.PageSize, DefaultPageSize)
	review.Concurrency = SetThen(review.Concurrency, 1)
	review.TagsAPI = SetThen(review.TagsAPI, DefaultTagsAPI)
	if len(review.SupportedClasses) == 0 {
		review.SupportedClasses = append([]string(nil), defaultSupportedClasses...)
	}
	return nil
}

// ValidateInstances checks every configured instance and that at most one is the default.
func ValidateInstances(instances []Instance) error {
	defaults := 0
	seen := make(map[string]struct{}, len(instances))
	for i := range instances {
		if err := validate.Struct(instances[i]); err != nil {
			return fmt.Errorf("instance #%d: %w", i+1, err)
		}
		if _, ok := seen[instances[i].Name]; ok {
			return fmt.Errorf("instance %q is configured twice", instances[i].Name)
		}
		seen[instances[i].Name] = struct{}{}
		if instances[i].Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("only one instance can be the default, got %d", defaults)
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	// If host or port is not set, skip further validation
	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if err := validateHost(&proxy.Host); err != nil {
		return err
	}

	return validatePort(proxy.Port)
}

// validateHost checks if the host part of the proxy configuration is valid.
// It ensures the host includes a scheme; adds "http" if missing.
func validateHost(host *string) error {
	if host == nil {
		return fmt.Errorf("host string pointer is nil")
	}

	if !strings.Contains(*host, "://") {
		*host = "http://" + *host
	}
	*host = strings.TrimRight(*host, "/")

	if _, err := url.Parse(*host); err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}

	return nil
}

// validatePort checks if the port part of the proxy configuration is valid.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// updateHome updates the HomeFolder in the crnow config from environment variables or sets a default value.
func updateHome(cfg *Config) error {
	if homeFolder := os.Getenv("CRNOW_HOME"); homeFolder != "" {
		cfg.Crnow.HomeFolder = homeFolder
	} else if cfg.Crnow.HomeFolder == "" {
		homeFolder, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("unable to get user home folder: %w", err)
		}
		cfg.Crnow.HomeFolder = filepath.Join(homeFolder, ".crnow")
	}

	expandedHomePath, err := files.ExpandPath(cfg.Crnow.HomeFolder)
	if err != nil {
		return fmt.Errorf("failed to expand new home path %q: %w", cfg.Crnow.HomeFolder, err)
	}
	cfg.Crnow.HomeFolder = expandedHomePath

	if err := files.CreateFolderIfNotExists(expandedHomePath); err != nil {
		return fmt.Errorf("failed to create home folder %q: %w", cfg.Crnow.HomeFolder, err)
	}
	return nil
}

// updateFolder updates a folder path in the crnow configuration.
func updateFolder(folder *string, envVar, defaultSubFolder string, cfg *Config) error {
	if envVarValue := os.Getenv(envVar); envVarValue != "" {
		*folder = envVarValue
	} else if *folder == "" {
		*folder = filepath.Join(GetCrnowHome(cfg), defaultSubFolder)
	}

	expandedPath, err := files.ExpandPath(*folder)
	if err != nil {
		return fmt.Errorf("failed to expand path %q: %w", *folder, err)
	}
	*folder = expandedPath

	if err := files.CreateFolderIfNotExists(expandedPath); err != nil {
		return fmt.Errorf("failed to create folder %q: %w", expandedPath, err)
	}
	return nil
}
