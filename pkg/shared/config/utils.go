package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
)

const (
	// DefaultMaxDeltaDays bounds the time-delta review window.
	DefaultMaxDeltaDays = 30
	// DefaultPageSize is the sysparm_limit used for table API pagination.
	DefaultPageSize = 500
	// DefaultTagsAPI is the scripted REST endpoint of the companion scoped app.
	DefaultTagsAPI = "/api/x_snc_sn_rcr_v1/gettags/process"
	// DefaultRulesRepository is the repository the rules folder is mirrored from.
	DefaultRulesRepository = "https://github.com/pradeep-gouribhatla/snow-rules"
)

// GetBoolValue retrieves a boolean value from a nested struct based on a dot-separated path.
// It returns the provided defaultValue if the specified field is not explicitly set or is nil.
func GetBoolValue(config interface{}, fieldPath string, defaultValue bool) bool {
	if config == nil {
		return defaultValue
	}

	fields := strings.Split(fieldPath, ".")
	val := reflect.ValueOf(config)

	for _, field := range fields {
		if val.Kind() == reflect.Ptr {
			if val.IsNil() {
				return defaultValue
			}
			val = val.Elem()
		}
		if val.Kind() != reflect.Struct {
			return defaultValue
		}

		val = val.FieldByName(field)
		if !val.IsValid() {
			return defaultValue
		}
	}

	// Check if the field is a pointer to a bool and is not nil
	if val.Kind() == reflect.Ptr && !val.IsNil() {
		return val.Elem().Bool()
	} else if val.Kind() == reflect.Bool {
		// Handle non-pointer bool directly
		return val.Bool()
	}

	return defaultValue
}

// SetThen provides a utility to select the first value if set, otherwise defaults.
func SetThen[T any](value T, defaultValue T) T {
	if reflect.ValueOf(value).IsZero() {
		return defaultValue
	}
	return value
}

// GetCrnowHome returns the crnow home folder.
func GetCrnowHome(cfg *Config) string {
	return cfg.Crnow.HomeFolder
}

// GetRulesHome returns the folder holding rule definitions.
func GetRulesHome(cfg *Config) string {
	return cfg.Crnow.RulesFolder
}

// GetResultsHome returns the folder reports are written to.
func GetResultsHome(cfg *Config) string {
	return cfg.Crnow.ResultsFolder
}

// GetTemplatesHome returns the folder holding report templates.
func GetTemplatesHome(cfg *Config) string {
	return cfg.Crnow.TemplatesFolder
}

// GetInstance returns the instance with the given name, or the default instance when name is empty.
// The password can be supplied through CRNOW_PASSWORD instead of the config file.
func GetInstance(cfg *Config, name string) (Instance, error) {
	var found *Instance
	for i := range cfg.Instances {
		ins := cfg.Instances[i]
		if (name != "" && ins.Name == name) || (name == "" && ins.Default) {
			found = &ins
			break
		}
	}
	if found == nil && name == "" && len(cfg.Instances) == 1 {
		found = &cfg.Instances[0]
	}
	if found == nil {
		if name == "" {
			return Instance{}, fmt.Errorf("no default instance configured")
		}
		return Instance{}, fmt.Errorf("instance %q is not configured", name)
	}

	instance := *found
	if password := os.Getenv("CRNOW_PASSWORD"); password != "" {
		instance.Password = password
	}
	return instance, nil
}

// InstanceURL returns the base URL of the instance.
func InstanceURL(instance Instance) string {
	if instance.URL != "" {
		return strings.TrimRight(instance.URL, "/")
	}
	return fmt.Sprintf("https://%s.service-now.com", instance.Name)
}
