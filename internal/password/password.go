// Package password hashes and verifies passwords with bcrypt and classifies
// password strength for the registration gate.
package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Strength is the quality class of a password.
type Strength int

const (
	TooWeak Strength = iota
	Weak
	Medium
	Strong
)

func (s Strength) String() string {
	switch s {
	case Weak:
		return "Weak"
	case Medium:
		return "Medium"
	case Strong:
		return "Strong"
	}

	return "Too weak"
}

// policy lists the classes from strongest to weakest.
var policy = []struct {
	strength     Strength
	minDiversity int
	minLength    int
}{
	{Strong, 4, 10},
	{Medium, 4, 8},
	{Weak, 2, 6},
}

// ErrHashingFailed wraps any error returned by the hashing primitive.
var ErrHashingFailed = errors.New("failed to hash password")

// Hasher produces and checks bcrypt hashes with a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. Costs outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash. Every call uses a fresh salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashingFailed, err)
	}

	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A malformed hash is a mismatch.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Strength classifies plaintext. Diversity counts the character classes
// present among lowercase, uppercase, digits and symbols.
func (h *Hasher) Strength(plaintext string) Strength {
	return Classify(plaintext)
}

// symbols is the ASCII punctuation counted as the symbol class. Characters
// outside ASCII add length but no class.
const symbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Classify is the pure strength function behind Hasher.Strength.
func Classify(plaintext string) Strength {
	var lower, upper, digit, symbol bool
	length := 0
	for _, r := range plaintext {
		length++
		switch {
		case 'a' <= r && r <= 'z':
			lower = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		case strings.ContainsRune(symbols, r):
			symbol = true
		}
	}

	diversity := 0
	for _, present := range []bool{lower, upper, digit, symbol} {
		if present {
			diversity++
		}
	}

	for _, rule := range policy {
		if diversity >= rule.minDiversity && length >= rule.minLength {
			return rule.strength
		}
	}

	return TooWeak
}
