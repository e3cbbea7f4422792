package main

import (
	"fmt"
	"os"
	"strings"
)

// toggle is an auto|on|off flag value.
type toggle string

const (
	toggleAuto toggle = "auto"
	toggleOn   toggle = "on"
	toggleOff  toggle = "off"
)

func readToggle(flag, value string) (toggle, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return toggleAuto, nil
	case "on", "always", "true":
		return toggleOn, nil
	case "off", "never", "false":
		return toggleOff, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

// resolve decides an auto toggle by whether stdout is a terminal.
func (t toggle) resolve() bool {
	switch t {
	case toggleOn:
		return true
	case toggleOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
