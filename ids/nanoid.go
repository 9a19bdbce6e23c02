package ids

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
	"github.com/ronny/linkdb/debug"
)

const (
	// The alphabet that can make up an ID, every char should be safe for use in URLs without extra encoding
	NanoIDDefaultCharacters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"
	NanoIDDefaultLength     = 8
	// the default max number of attempts to generate an ID until it doesn't
	// match anything in the denylist
	NanoIDDefaultMaxAttempts = 10
)

// NanoIDGenerator generates random, URL-safe short codes that don't contain
// anything from a denylist.
type NanoIDGenerator struct {
	chars       string
	length      int
	maxAttempts int
	denylist    []string
	generate    func() string
}

var _ Generator = (*NanoIDGenerator)(nil)

func (g *NanoIDGenerator) GenerateID() (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		id := g.generate()
		if IsAllowed(id, g.denylist) {
			return id, nil
		}
		debug.DeniedShortCodes().Inc()
	}

	return "", fmt.Errorf("exhausted %d attempts to generate an ID that doesn't match anything from the denylist", g.maxAttempts)
}

func NewNanoIDGenerator(options ...func(*NanoIDGenerator)) (*NanoIDGenerator, error) {
	generator := &NanoIDGenerator{
		chars:       NanoIDDefaultCharacters,
		length:      NanoIDDefaultLength,
		maxAttempts: NanoIDDefaultMaxAttempts,
	}

	for _, option := range options {
		option(generator)
	}

	if generator.maxAttempts < 1 {
		return nil, fmt.Errorf("maxAttempts must be at least 1, got %d", generator.maxAttempts)
	}

	// An empty, non-nil denylist with a length of 0 indicates the user wants no
	// denylist. Only load the default denylist if this is not nil.
	if generator.denylist == nil {
		generator.denylist = defaultDenylist
	}

	var err error
	generator.generate, err = nanoid.CustomASCII(generator.chars, generator.length)
	if err != nil {
		return nil, fmt.Errorf("nanoid.CustomASCII: %w", err)
	}

	return generator, nil
}

func WithNanoIDCustomASCII(chars string) func(*NanoIDGenerator) {
	return func(g *NanoIDGenerator) {
		g.chars = chars
	}
}

// WithNanoIDLength specifies a specific length for the generated Nano IDs.
// See https://zelark.github.io/nano-id-cc/ on length and collisions.
func WithNanoIDLength(length int) func(*NanoIDGenerator) {
	return func(g *NanoIDGenerator) {
		g.length = length
	}
}

// WithNanoIDMaxAttempts specifies the max number of attempts to generate an ID until
// it doesn't match anything in the denylist
func WithNanoIDMaxAttempts(maxAttempts int) func(*NanoIDGenerator) {
	return func(g *NanoIDGenerator) {
		g.maxAttempts = maxAttempts
	}
}

func WithNanoIDDenylist(denylist []string) func(*NanoIDGenerator) {
	return func(g *NanoIDGenerator) {
		g.denylist = denylist
	}
}
