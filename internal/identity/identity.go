package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Generator hands out component ids. Every id returned must differ from
// every id handed out before it in the same process.
type Generator interface {
	NewID() string
}

// Func adapts a plain function to Generator.
type Func func() string

func (f Func) NewID() string { return f() }

// uuidGenerator prefixes random v4 UUIDs so ids stay readable in page JSON.
type uuidGenerator struct {
	prefix string
}

// New returns the default generator. An empty prefix yields bare UUIDs.
func New(prefix string) Generator {
	return &uuidGenerator{prefix: strings.TrimSuffix(prefix, "-")}
}

func (g *uuidGenerator) NewID() string {
	id := uuid.New().String()
	if g.prefix == "" {
		return id
	}
	return g.prefix + "-" + id
}
