//go:build tools

package fsmgen

import (
	_ "github.com/goliatone/go-generators/cmd/options-setters"
)
