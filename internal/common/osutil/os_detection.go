package osutil

import "os"

// GOOS values with platform-specific directory layouts.
const (
	Windows = "windows"
	MacOS   = "darwin"
)

// IsDevEnvironment checks if the application is running in a development environment
// based on environment variables
func IsDevEnvironment() bool {
	return os.Getenv("SERVICE_COMPOSER_ENV") == "development" ||
		os.Getenv("SERVICE_COMPOSER_DEV") == "true" ||
		os.Getenv("DEV") == "true"
}

// IsPipeline returns true if running in a CI/CD pipeline environment
func IsPipeline() bool {
	return os.Getenv("CI") == "true" ||
		os.Getenv("PIPELINE") == "true" ||
		os.Getenv("GITHUB_ACTIONS") == "true" ||
		os.Getenv("JENKINS_URL") != ""
}
