package schedule

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteHeartbeat records the current instant to path, creating parent
// directories as needed.
func WriteHeartbeat(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create heartbeat dir: %w", err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := os.WriteFile(path, []byte(stamp+"\n"), 0o644); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}

// CheckHeartbeat returns the age of the last heartbeat. A missing or
// unparseable file is an error so monitoring can distinguish "never ran"
// from "stale".
func CheckHeartbeat(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read heartbeat: %w", err)
	}
	stamp, err := time.Parse(time.RFC3339, string(trimNewline(data)))
	if err != nil {
		return 0, fmt.Errorf("parse heartbeat: %w", err)
	}
	return time.Since(stamp), nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
