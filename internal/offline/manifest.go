package offline

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest lists what the worker precaches.
type Manifest struct {
	CacheName   string   `yaml:"cache_name"`
	Assets      []string `yaml:"assets"`
	OfflinePage string   `yaml:"offline_page"`
}

// DefaultManifest is the shell served from web/, the same list that
// config/offline.yaml ships with.
func DefaultManifest() Manifest {
	return Manifest{
		CacheName: "menucraft-v2",
		Assets: []string{
			"/admin.html",
			"/index.html",
			"/css/styles.css",
			"/js/utils.js",
			"/js/menu.js",
			"/js/admin.js",
			"/manifest.json",
		},
		OfflinePage: "/admin.html",
	}
}

// LoadManifest reads a YAML manifest. A missing file gives the default.
// Fields left out of the file keep their defaults.
func LoadManifest(path string) (Manifest, error) {
	m := DefaultManifest()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return Manifest{}, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

func (m Manifest) Validate() error {
	if strings.TrimSpace(m.CacheName) == "" {
		return errors.New("cache_name is required")
	}
	if len(m.Assets) == 0 {
		return errors.New("at least one asset is required")
	}
	for _, a := range m.Assets {
		if !strings.HasPrefix(a, "/") {
			return fmt.Errorf("asset %q must be an absolute path", a)
		}
	}
	if m.OfflinePage != "" && !strings.HasPrefix(m.OfflinePage, "/") {
		return fmt.Errorf("offline_page %q must be an absolute path", m.OfflinePage)
	}
	return nil
}
