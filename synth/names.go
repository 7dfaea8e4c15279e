package synth

import (
	"go/token"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// reserved identifiers used by generated code.
var reserved = map[string]bool{
	"m":     true,
	"owner": true,
	"opts":  true,
	"fsm":   true,
	"nil":   true,
	"true":  true,
	"false": true,
	"iota":  true,
	"_":     true,
}

// names hands out unique local identifiers in request order.
type names struct {
	used map[string]bool
}

func newNames() *names {
	return &names{used: make(map[string]bool)}
}

// reserve marks name as taken, typically an import alias.
func (n *names) reserve(name string) {
	if name != "" {
		n.used[name] = true
	}
}

// alloc returns base, or base followed by the smallest suffix 2, 3, ...
// that is still free.
func (n *names) alloc(base string) string {
	if base == "" {
		base = "state"
	}
	if token.IsKeyword(base) || reserved[base] || isPredeclared(base) {
		base += "State"
	}
	candidate := base
	for i := 2; n.used[candidate]; i++ {
		candidate = base + strconv.Itoa(i)
	}
	n.used[candidate] = true
	return candidate
}

// sanitize turns an identity into a Go identifier: invalid runes are
// dropped, the next letter is upper-cased and a leading digit is prefixed.
func sanitize(identity string) string {
	var b strings.Builder
	upper := false
	for _, r := range identity {
		switch {
		case unicode.IsLetter(r) || r == '_':
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if b.Len() == 0 {
				b.WriteRune('s')
			}
			b.WriteRune(r)
			upper = false
		default:
			upper = b.Len() > 0
		}
	}
	return b.String()
}

// lowerFirst lower-cases the first rune.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// upperFirst upper-cases the first rune.
func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// bindingBase derives the local variable name for a state identity.
func bindingBase(identity string) string {
	return lowerFirst(sanitize(identity))
}

// packageAlias guesses the name a package path is imported under.
func packageAlias(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	path = strings.TrimPrefix(path, "go-")
	var b strings.Builder
	for _, r := range strings.ToLower(path) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isPredeclared(name string) bool {
	switch name {
	case "any", "bool", "byte", "comparable", "complex64", "complex128", "error",
		"float32", "float64", "int", "int8", "int16", "int32", "int64", "rune",
		"string", "uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"append", "cap", "clear", "close", "complex", "copy", "delete", "imag",
		"len", "make", "max", "min", "new", "panic", "print", "println", "real",
		"recover":
		return true
	}
	return false
}
