package featureflags

import (
	"os"
	"strings"
)

// Flags are read from env as FLAG_<NAME>=true/false (also 1/0, yes/no,
// on/off, case-insensitive).

// Enabled returns true if a flag is switched on. An unset flag is off.
func Enabled(name string) bool {
	return EnabledDefault(name, false)
}

// EnabledDefault returns the flag state, falling back to def when the
// variable is unset or unrecognized. Used for features that ship on but
// must stay switchable, like the approval push channel.
func EnabledDefault(name string, def bool) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
