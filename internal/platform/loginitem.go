package platform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLoginItemUnsupported is returned on platforms without a login item
// mechanism.
var ErrLoginItemUnsupported = errors.New("login items are not supported on this platform")

// LoginItem describes a command launched when the user logs in.
type LoginItem struct {
	Name string
	Exec string
	Args []string
}

// Validate checks that the item can be installed.
func (item LoginItem) Validate() error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("login item: name is empty")
	}
	if item.Exec == "" {
		return fmt.Errorf("login item %s: exec path is empty", item.Name)
	}
	return nil
}

// slug turns the item name into a file-system friendly identifier.
func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, " ", "-")
}

// EnableLoginItem installs item so it runs at login.
func EnableLoginItem(item LoginItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("enable login item: %w", err)
	}
	return enableLoginItem(item)
}

// DisableLoginItem removes the login item called name. Removing an item that
// is not installed is not an error.
func DisableLoginItem(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("disable login item: name is empty")
	}
	return disableLoginItem(name)
}
