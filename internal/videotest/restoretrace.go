package videotest

import (
	"embed"
	"os"
	"path"
	"path/filepath"
)

//go:embed assets/*.json
var assets embed.FS

const (
	// GapTrace has three frames where the middle one carries no vectors,
	// plus a packet from a foreign stream.
	GapTrace = "gap.json"
	// StallTrace has one packet that stops making progress after its
	// first frame.
	StallTrace = "stall.json"
)

// RestoreTraceFile writes the named mock backend trace into dir and
// returns its path.
func RestoreTraceFile(dir, name string) (string, error) {
	content, err := assets.ReadFile(path.Join("assets", name))
	if err != nil {
		return "", err
	}

	tracePath := filepath.Join(dir, name)
	if err := os.WriteFile(tracePath, content, 0o600); err != nil {
		return "", err
	}
	return tracePath, nil
}
