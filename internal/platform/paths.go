package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	osWindows = "windows"
	osDarwin  = "darwin"

	appName    = "redditmusic"
	appDisplay = "RedditMusic"
)

// dirSpec describes where one kind of directory lives on each OS.
type dirSpec struct {
	darwin  string // below ~/Library
	xdgEnv  string
	xdgHome string // below ~ when xdgEnv is unset
}

var (
	dataDir   = dirSpec{darwin: "Application Support", xdgEnv: "XDG_DATA_HOME", xdgHome: filepath.Join(".local", "share")}
	configDir = dirSpec{darwin: "Preferences", xdgEnv: "XDG_CONFIG_HOME", xdgHome: ".config"}
)

// GetDataDir returns the platform-specific data directory. The settings
// database lives here.
func GetDataDir() (string, error) {
	return resolve(dataDir)
}

// GetConfigDir returns the platform-specific configuration directory.
func GetConfigDir() (string, error) {
	return resolve(configDir)
}

// CatalogPath is the default location of the subreddit catalog file.
func CatalogPath() string {
	dir, err := GetConfigDir()
	if err != nil {
		return "subreddits.yaml"
	}
	return filepath.Join(dir, "subreddits.yaml")
}

func resolve(kind dirSpec) (string, error) {
	switch runtime.GOOS {
	case osWindows:
		// Windows keeps data and config together under the roaming profile.
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appDisplay), nil
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming", appDisplay), nil
	case osDarwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", kind.darwin, appDisplay), nil
	default:
		if xdg := os.Getenv(kind.xdgEnv); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, kind.xdgHome, appName), nil
	}
}
