//go:build linux

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func enableLoginItem(item LoginItem) error {
	path, err := desktopEntryPath(item.Name)
	if err != nil {
		return fmt.Errorf("enable login item: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("enable login item: create autostart dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(buildDesktopEntry(item)), 0o644); err != nil {
		return fmt.Errorf("enable login item: write desktop entry: %w", err)
	}
	return nil
}

func disableLoginItem(name string) error {
	path, err := desktopEntryPath(name)
	if err != nil {
		return fmt.Errorf("disable login item: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disable login item: remove desktop entry: %w", err)
	}
	return nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}

func desktopEntryPath(name string) (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "autostart", slug(name)+".desktop"), nil
}

func buildDesktopEntry(item LoginItem) string {
	parts := make([]string, 0, len(item.Args)+1)
	for _, part := range append([]string{item.Exec}, item.Args...) {
		if strings.ContainsAny(part, " \t\"") {
			part = `"` + strings.ReplaceAll(part, `"`, `\"`) + `"`
		}
		parts = append(parts, part)
	}

	return fmt.Sprintf(
		`[Desktop Entry]
Type=Application
Name=%s
Exec=%s
X-GNOME-Autostart-enabled=true
Terminal=false
`,
		item.Name,
		strings.Join(parts, " "),
	)
}
