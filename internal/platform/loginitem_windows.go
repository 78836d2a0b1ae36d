//go:build windows

package platform

import (
	"os/exec"
	"path/filepath"
)

var runKeyItems = runKey{reg: func(args ...string) ([]byte, error) {
	return exec.Command("reg", args...).CombinedOutput()
}}

func enableLoginItem(item LoginItem) error {
	return runKeyItems.enable(item)
}

func disableLoginItem(name string) error {
	return runKeyItems.disable(name)
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, "AppData", "Roaming")
}
