package importer

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/memoria/core/internal/infrastructure/config"
)

// Family groups browsers sharing an on-disk format
type Family string

const (
	FamilyChromium Family = "chromium"
	FamilyFirefox  Family = "firefox"
)

// Source is one browser profile to import from
type Source struct {
	Browser string
	Family  Family
	Profile string
	// Dir is the profile directory holding the history database
	Dir string
}

// Label identifies the source in stored records and logs
func (s Source) Label() string {
	return s.Browser + ":" + s.Profile
}

// Tag is the id prefix of records from this source: lower-case alphanumerics and underscores
func (s Source) Tag() string {
	var b strings.Builder
	for _, r := range strings.ToLower(s.Browser + "_" + s.Profile) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// HistoryFile is the SQLite database holding visits (and, for Firefox, bookmarks)
func (s Source) HistoryFile() string {
	if s.Family == FamilyFirefox {
		return filepath.Join(s.Dir, "places.sqlite")
	}
	return filepath.Join(s.Dir, "History")
}

// BookmarksFile is Chromium's JSON bookmark store; Firefox keeps bookmarks in places.sqlite
func (s Source) BookmarksFile() string {
	if s.Family == FamilyFirefox {
		return ""
	}
	return filepath.Join(s.Dir, "Bookmarks")
}

// Environment is the platform information discovery depends on
type Environment struct {
	GOOS         string
	Home         string
	LocalAppData string
	AppData      string
}

// CurrentEnvironment describes the running host
func CurrentEnvironment() Environment {
	home, _ := os.UserHomeDir()
	return Environment{
		GOOS:         runtime.GOOS,
		Home:         home,
		LocalAppData: os.Getenv("LOCALAPPDATA"),
		AppData:      os.Getenv("APPDATA"),
	}
}

type browserSpec struct {
	name     string
	family   Family
	override config.BrowserProfile
	paths    map[string]string
}

func browserSpecs(cfg config.BrowsersConfig, env Environment) []browserSpec {
	home := env.Home
	support := filepath.Join(home, "Library", "Application Support")

	return []browserSpec{
		{
			name: "chrome", family: FamilyChromium, override: cfg.Chrome,
			paths: map[string]string{
				"linux":   filepath.Join(home, ".config", "google-chrome"),
				"darwin":  filepath.Join(support, "Google", "Chrome"),
				"windows": filepath.Join(env.LocalAppData, "Google", "Chrome", "User Data"),
			},
		},
		{
			name: "chromium", family: FamilyChromium, override: cfg.Chromium,
			paths: map[string]string{
				"linux":   filepath.Join(home, ".config", "chromium"),
				"darwin":  filepath.Join(support, "Chromium"),
				"windows": filepath.Join(env.LocalAppData, "Chromium", "User Data"),
			},
		},
		{
			name: "edge", family: FamilyChromium, override: cfg.Edge,
			paths: map[string]string{
				"linux":   filepath.Join(home, ".config", "microsoft-edge"),
				"darwin":  filepath.Join(support, "Microsoft Edge"),
				"windows": filepath.Join(env.LocalAppData, "Microsoft", "Edge", "User Data"),
			},
		},
		{
			name: "brave", family: FamilyChromium, override: cfg.Brave,
			paths: map[string]string{
				"linux":   filepath.Join(home, ".config", "BraveSoftware", "Brave-Browser"),
				"darwin":  filepath.Join(support, "BraveSoftware", "Brave-Browser"),
				"windows": filepath.Join(env.LocalAppData, "BraveSoftware", "Brave-Browser", "User Data"),
			},
		},
		{
			name: "firefox", family: FamilyFirefox, override: cfg.Firefox,
			paths: map[string]string{
				"linux":   filepath.Join(home, ".mozilla", "firefox"),
				"darwin":  filepath.Join(support, "Firefox", "Profiles"),
				"windows": filepath.Join(env.AppData, "Mozilla", "Firefox", "Profiles"),
			},
		},
	}
}

// Discover lists the profiles whose history database exists. Configured
// directories and profile lists take precedence over platform defaults;
// anything that cannot be found is skipped.
func Discover(cfg config.BrowsersConfig, env Environment) []Source {
	var sources []Source

	for _, spec := range browserSpecs(cfg, env) {
		root := spec.override.UserDataDir
		if root == "" {
			root = spec.paths[env.GOOS]
		}
		if root == "" || !isDir(root) {
			continue
		}

		profiles := spec.override.ProfileList()
		if len(profiles) == 0 {
			profiles = scanProfiles(root, spec.family)
		}

		for _, profile := range profiles {
			src := Source{Browser: spec.name, Family: spec.family, Profile: profile, Dir: filepath.Join(root, profile)}
			if fileExists(src.HistoryFile()) {
				sources = append(sources, src)
			}
		}
	}

	return sources
}

// scanProfiles finds profile directories: Chromium uses "Default" and
// "Profile N", Firefox uses arbitrary names containing places.sqlite
func scanProfiles(root string, family Family) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var profiles []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch family {
		case FamilyChromium:
			if name == "Default" || strings.HasPrefix(name, "Profile ") {
				profiles = append(profiles, name)
			}
		case FamilyFirefox:
			if fileExists(filepath.Join(root, name, "places.sqlite")) {
				profiles = append(profiles, name)
			}
		}
	}
	sort.Strings(profiles)
	return profiles
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
