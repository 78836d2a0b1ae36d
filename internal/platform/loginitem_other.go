//go:build !linux && !darwin && !windows

package platform

import "path/filepath"

func enableLoginItem(LoginItem) error {
	return ErrLoginItemUnsupported
}

func disableLoginItem(string) error {
	return ErrLoginItemUnsupported
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}
