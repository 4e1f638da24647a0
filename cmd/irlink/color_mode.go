package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.Bold)
	moduleColor  = color.New(color.FgCyan, color.Bold)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	detailColor  = color.New(color.Faint)
	categoryTint = map[string]*color.Color{
		"library": color.New(color.FgGreen),
		"cached":  color.New(color.FgBlue),
		"interop": color.New(color.FgMagenta),
		"forward": color.New(color.FgYellow),
	}
)

func applyColorMode(value string) error {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
	return nil
}

func tintCategory(name string) string {
	if c, ok := categoryTint[name]; ok {
		return c.Sprint(name)
	}
	return name
}
