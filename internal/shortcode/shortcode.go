// Package shortcode generates candidate short codes for new entries.
package shortcode

import (
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Digits is the alphabet of numeric short codes.
	Digits = "0123456789"
	// DefaultLength gives codes in the range 000000-999999.
	DefaultLength = 6
)

var ErrInvalidLength = errors.New("short code length must be positive")

// Generator produces fixed-width random codes. It does not check uniqueness.
type Generator struct {
	alphabet string
	length   int
}

// New returns a numeric Generator producing codes of the given length.
func New(length int) (*Generator, error) {
	const op = "shortcode.New"

	if length <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidLength)
	}

	return &Generator{
		alphabet: Digits,
		length:   length,
	}, nil
}

// Generate returns a code whose characters are drawn uniformly from the alphabet.
func (g *Generator) Generate() (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(g.alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}
