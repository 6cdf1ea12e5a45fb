package codegen

import (
	"go/token"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// reservedLocals are identifiers a user binding must not shadow: the
// parameters and results of every generated decoder, the runtime import
// and Go's predeclared identifiers.
var reservedLocals = map[string]bool{
	"scope": true, "p": true, "err": true, "rt": true, "ret": true,
	"append": true, "bool": true, "byte": true, "cap": true, "clear": true,
	"close": true, "complex": true, "copy": true, "delete": true,
	"error": true, "false": true, "float32": true, "float64": true,
	"imag": true, "int": true, "int8": true, "int16": true, "int32": true,
	"int64": true, "iota": true, "len": true, "make": true, "max": true,
	"min": true, "new": true, "nil": true, "panic": true, "print": true,
	"println": true, "real": true, "recover": true, "rune": true,
	"string": true, "true": true, "uint": true, "uint8": true,
	"uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"any": true, "comparable": true,
}

// LocalName maps a user-visible name (record field, let binding, lambda
// parameter, pattern binding) to a Go identifier. The result never begins
// with an underscore, so it cannot collide with generated temporaries.
func LocalName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if isASCIIAlnum(r) || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	s := sb.String()
	if s == "" || !('a' <= s[0] && s[0] <= 'z') {
		s = "v_" + s
	}
	if token.IsKeyword(s) || reservedLocals[s] {
		s += "_"
	}
	return s
}

func isASCIIAlnum(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
}

// NameGen chooses unique exported names for declarations from the path of
// labels at which each type is first encountered.
type NameGen struct {
	path  []string
	used  map[string]bool
	title cases.Caser
}

// NewNameGen returns a generator with the names of the generated entry
// points reserved.
func NewNameGen() *NameGen {
	g := &NameGen{
		used:  make(map[string]bool),
		title: cases.Title(language.Und, cases.NoLower),
	}
	g.used["Decode"] = true
	return g
}

// Push extends the naming path with atom.
func (g *NameGen) Push(atom string) { g.path = append(g.path, atom) }

// Pop removes the innermost atom.
func (g *NameGen) Pop() { g.path = g.path[:len(g.path)-1] }

// WithRoot runs fn with the naming path replaced by the single atom.
func (g *NameGen) WithRoot(atom string, fn func()) {
	saved := g.path
	g.path = []string{atom}
	defer func() { g.path = saved }()
	fn()
}

// Fresh returns an unused name derived from the current path.
func (g *NameGen) Fresh() string {
	var sb strings.Builder
	for _, atom := range g.path {
		sb.WriteString(g.Exported(atom))
	}
	base := sb.String()
	if base == "" {
		base = "Type"
	}
	if base[0] >= '0' && base[0] <= '9' {
		base = "T" + base
	}
	if isDecoderName(base) {
		base += "Type"
	}
	// Decoder followed by digits names a generated function.
	sep := ""
	if base == "Decoder" {
		sep = "_"
	}
	name := base
	for n := 2; g.used[name]; n++ {
		name = base + sep + strconv.Itoa(n)
	}
	g.used[name] = true
	return name
}

// Exported title-cases each alphanumeric word of s and joins them:
// "chunk_type" and "chunk-type" both become "ChunkType".
func (g *NameGen) Exported(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return !isASCIIAlnum(r) })
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(g.title.String(w))
	}
	return sb.String()
}

// memberName is Exported for a struct field or variant, made unique
// within its declaration.
func (g *NameGen) memberName(label string, taken map[string]bool) string {
	base := g.Exported(label)
	if base == "" || base[0] >= '0' && base[0] <= '9' {
		base = "X" + base
	}
	name := base
	for n := 2; taken[name]; n++ {
		name = base + strconv.Itoa(n)
	}
	taken[name] = true
	return name
}

func isDecoderName(name string) bool {
	rest, ok := strings.CutPrefix(name, "Decoder")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func decoderName(index int) string { return "Decoder" + strconv.Itoa(index) }
