package config

import (
	"fmt"
	"net/url"
	"time"
)

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateGitConfig(&cfg.GitClient); err != nil {
		return fmt.Errorf("YAML global config: git_client directive is invalid: %w", err)
	}
	if err := ValidateSonarConfig(&cfg.Sonar); err != nil {
		return fmt.Errorf("YAML global config: sonar directive is invalid: %w", err)
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
		"retry_wait_time":     httpConfig.RetryWaitTime,
		"retry_max_wait_time": httpConfig.RetryMaxWaitTime,
		"timeout":             httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 1*time.Hour); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGitConfig checks if the Git configurations have valid values.
func ValidateGitConfig(gitConfig *GitClient) error {
	if gitConfig == nil {
		return fmt.Errorf("git configuration is nil")
	}
	if gitConfig.Depth < 0 {
		return fmt.Errorf("depth must not be negative: %d", gitConfig.Depth)
	}
	return validateDuration(gitConfig.Timeout, "timeout", 1*time.Hour)
}

// ValidateSonarConfig checks if the external analysis service configurations have valid values.
func ValidateSonarConfig(sonarConfig *Sonar) error {
	if sonarConfig == nil {
		return fmt.Errorf("sonar configuration is nil")
	}
	if sonarConfig.HostURL != "" {
		if _, err := url.ParseRequestURI(sonarConfig.HostURL); err != nil {
			return fmt.Errorf("host_url is not a valid URL: %w", err)
		}
	}
	if err := validateDuration(sonarConfig.PollInterval, "poll_interval", 1*time.Minute); err != nil {
		return err
	}
	return validateDuration(sonarConfig.MaxWait, "max_wait", 1*time.Hour)
}

func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%s must not be negative: %s", name, d)
	}
	if d > max {
		return fmt.Errorf("%s must not exceed %s: %s", name, max, d)
	}
	return nil
}
