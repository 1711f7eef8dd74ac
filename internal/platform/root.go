package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigNames are the file names FindConfig looks for, in order.
var ConfigNames = []string{"chronote.yaml", "chronote.yml", ".chronote.yaml"}

// FindConfig looks upwards from startDir for a chronote config file and
// returns its absolute path.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, name := range ConfigNames {
			if hasFile(dir, name) {
				return filepath.Join(dir, name), nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("config not found")
}

func hasFile(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}
