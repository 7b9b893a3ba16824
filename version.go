package guiche

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the release version of guiche.
var Version = strings.TrimSpace(version)
