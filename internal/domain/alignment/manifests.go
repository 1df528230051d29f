package alignment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadManifests reads every *.json manifest under dir, keyed by tool name.
func LoadManifests(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read manifests: %w", err)
	}
	out := map[string][]byte{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read manifest %s: %w", e.Name(), err)
		}
		out[strings.TrimSuffix(e.Name(), ".json")] = raw
	}
	return out, nil
}
