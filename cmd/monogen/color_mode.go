package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

type toggleMode string

const (
	toggleAuto toggleMode = "auto"
	toggleOn   toggleMode = "on"
	toggleOff  toggleMode = "off"
)

func readToggle(flag, value string) (toggleMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return toggleAuto, nil
	case "on":
		return toggleOn, nil
	case "off":
		return toggleOff, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

// enabled resolves auto against whether f is a terminal.
func (m toggleMode) enabled(f *os.File) bool {
	switch m {
	case toggleOn:
		return true
	case toggleOff:
		return false
	default:
		return isTerminal(f)
	}
}

// setupColor applies --color globally and reports whether colour is on.
func setupColor(value string) (bool, error) {
	mode, err := readToggle("color", value)
	if err != nil {
		return false, err
	}
	enabled := mode.enabled(os.Stdout)
	if mode == toggleAuto && os.Getenv("NO_COLOR") != "" {
		enabled = false
	}
	color.NoColor = !enabled
	return enabled, nil
}
