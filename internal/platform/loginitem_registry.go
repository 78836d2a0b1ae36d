package platform

import (
	"fmt"
	"strings"
)

const registryRunKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`

// regCommand runs reg.exe with args and returns its combined output.
type regCommand func(args ...string) ([]byte, error)

// runKey manages login items stored as values under the Run key.
type runKey struct {
	reg regCommand
}

func (key runKey) enable(item LoginItem) error {
	output, err := key.reg("add", registryRunKey,
		"/v", item.Name,
		"/t", "REG_SZ",
		"/d", windowsCommandLine(item),
		"/f",
	)
	if err != nil {
		return fmt.Errorf("enable login item: reg add: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// disable deletes the value for name. reg query fails when the value is
// absent, in which case there is nothing to remove.
func (key runKey) disable(name string) error {
	if _, err := key.reg("query", registryRunKey, "/v", name); err != nil {
		return nil
	}
	output, err := key.reg("delete", registryRunKey, "/v", name, "/f")
	if err != nil {
		return fmt.Errorf("disable login item: reg delete: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func windowsCommandLine(item LoginItem) string {
	parts := []string{`"` + strings.Trim(item.Exec, `"`) + `"`}
	for _, arg := range item.Args {
		if strings.ContainsAny(arg, " \t") {
			arg = `"` + arg + `"`
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}
