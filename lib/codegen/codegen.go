// Package codegen generates human-shareable invitation codes.
package codegen

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet has no 0/O, 1/I/L so codes survive being read aloud or retyped.
const Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const partLength = 4

// Generate returns a code in the form XXXX-XXXX. Output is already uppercase
// and matches entity.NormalizeCode.
func Generate() (string, error) {
	first, err := gonanoid.Generate(Alphabet, partLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	second, err := gonanoid.Generate(Alphabet, partLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return first + "-" + second, nil
}
