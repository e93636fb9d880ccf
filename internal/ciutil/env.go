package ciutil

import (
	"log/slog"
	"os"

	"github.com/phrazzld/querykit/internal/redact"
)

const (
	// CI environment detection variables
	EnvCI              = "CI"
	EnvGitHubActions   = "GITHUB_ACTIONS"
	EnvGitHubWorkspace = "GITHUB_WORKSPACE"
	EnvGitLabCI        = "GITLAB_CI"
	EnvJenkinsURL      = "JENKINS_URL"
	EnvCircleCI        = "CIRCLECI"

	// Integration test database, in lookup order.
	EnvDatabaseURL = "DATABASE_URL"
	EnvTestDBURL   = "QUERYKIT_TEST_DB_URL"
)

// IsCI reports whether the process runs under a known CI system.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" ||
		os.Getenv(EnvGitHubActions) != "" ||
		os.Getenv(EnvGitLabCI) != "" ||
		os.Getenv(EnvJenkinsURL) != "" ||
		os.Getenv(EnvCircleCI) != ""
}

// IsGitHubActions reports whether the process runs in a GitHub Actions job.
func IsGitHubActions() bool {
	return os.Getenv(EnvGitHubActions) != "" && os.Getenv(EnvGitHubWorkspace) != ""
}

// GetEnvWithFallbacks returns the first non-empty variable of envVars, or
// defaultValue. Using any variable but the first is logged as legacy.
func GetEnvWithFallbacks(envVars []string, defaultValue string, logger *slog.Logger) string {
	for i, envVar := range envVars {
		val := os.Getenv(envVar)
		if val == "" {
			continue
		}
		if i > 0 && logger != nil {
			logger.Warn("Using fallback environment variable",
				slog.String("used_var", envVar),
				slog.String("preferred_var", envVars[0]),
				slog.String("value", MaskSensitiveValue(val)),
			)
		}
		return val
	}
	return defaultValue
}

// TestDatabaseURL returns the PostgreSQL URL for integration tests, or "".
func TestDatabaseURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks([]string{EnvDatabaseURL, EnvTestDBURL}, "", logger)
}

// MaskSensitiveValue hides the password of URL values and redacts anything
// else that looks like a credential.
func MaskSensitiveValue(value string) string {
	return redact.URL(value)
}
