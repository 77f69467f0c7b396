package taper

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ciColorProviders are CI environments known to render ANSI colors in build
// output even though the process has no terminal attached.
var ciColorProviders = []string{
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"TRAVIS",
	"BUILDKITE",
	"DRONE",
	"APPVEYOR",
}

// productionMode reports whether the process declares a production
// environment, which switches console output to the machine form.
func productionMode() bool {
	return os.Getenv("APP_ENV") == "production" || os.Getenv("GO_ENV") == "production"
}

// ciColorAllowed reports whether the process runs under an allowlisted CI
// provider.
func ciColorAllowed() bool {
	if os.Getenv("TEAMCITY_VERSION") != "" {
		return true
	}
	if os.Getenv("CI") == "" {
		return false
	}
	for _, v := range ciColorProviders {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return os.Getenv("CI_NAME") == "codeship"
}

// colorEnabled decides whether styled output goes to f. The explicit config
// switch and NO_COLOR always win; forced color beats terminal detection;
// allowlisted CI providers count as capable without a TTY.
func colorEnabled(f *os.File, configColors bool) bool {
	if !configColors {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch os.Getenv("FORCE_COLOR") {
	case "0":
		return false
	case "1", "2", "3", "true":
		return true
	}
	if os.Getenv("CLICOLOR_FORCE") == "1" {
		return true
	}
	if ciColorAllowed() {
		return true
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return f != nil && isatty.IsTerminal(f.Fd())
}
