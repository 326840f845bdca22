package domain

import (
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// BaseCodeLength is the length of the random part of an identifier.
	BaseCodeLength = 12
	// FullCodeLength is BaseCodeLength plus the leading region digit.
	FullCodeLength = BaseCodeLength + 1
)

const baseAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// uuidEntropyBytes are the UUID byte positions not touched by the version and
// variant bits.
var uuidEntropyBytes = [BaseCodeLength]int{0, 1, 2, 3, 4, 5, 7, 9, 10, 11, 12, 13}

// CodeReason tells why a full code failed validation.
type CodeReason string

const (
	ReasonLength  CodeReason = "wrong_length"
	ReasonRegion  CodeReason = "bad_region_digit"
	ReasonCharset CodeReason = "bad_charset"
)

// CodeError is returned by IdentifierCodec.Validate. It wraps ErrInvalidFormat.
type CodeError struct {
	Reason CodeReason
	Code   string
}

func (e *CodeError) Error() string {
	switch e.Reason {
	case ReasonLength:
		return fmt.Sprintf("code must have exactly %d characters, got %d", FullCodeLength, len(e.Code))
	case ReasonRegion:
		return "first character must be the region digit 1, 2 or 3"
	case ReasonCharset:
		return "base code must contain only uppercase letters and digits"
	}
	return string(e.Reason)
}

func (e *CodeError) Unwrap() error { return ErrInvalidFormat }

// Identifier is a decoded region-tagged product code.
type Identifier struct {
	RegionID int
	Base     string
	Full     string
}

// IdentifierCodec generates, encodes and validates region-tagged codes.
// The zero value draws entropy from crypto/rand.
type IdentifierCodec struct {
	rand io.Reader
}

// NewIdentifierCodec returns a codec reading entropy from r. A nil r uses crypto/rand.
func NewIdentifierCodec(r io.Reader) IdentifierCodec {
	return IdentifierCodec{rand: r}
}

// GenerateBase returns a fresh 12-character [A-Z0-9] code.
// Collisions are unlikely but possible: callers must check the code is unused
// before committing it.
func (c IdentifierCodec) GenerateBase() (string, error) {
	r := c.rand
	if r == nil {
		r = rand.Reader
	}
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return "", fmt.Errorf("domain.IdentifierCodec.GenerateBase: %w", err)
	}
	var b [BaseCodeLength]byte
	for i, pos := range uuidEntropyBytes {
		b[i] = baseAlphabet[int(id[pos])%len(baseAlphabet)]
	}
	return string(b[:]), nil
}

// Encode prefixes base with the region digit. A region outside {1,2,3} is
// replaced with DefaultRegion so generation never fails on a bad argument.
func (IdentifierCodec) Encode(region int, base string) string {
	if !IsValidRegion(region) {
		region = DefaultRegion
	}
	return strconv.Itoa(region) + base
}

// Validate checks the structure of a full code. It does not upper-case the
// input. The returned error is a *CodeError, checked in the order length,
// region digit, character set.
func (IdentifierCodec) Validate(full string) error {
	if len(full) != FullCodeLength {
		return &CodeError{Reason: ReasonLength, Code: full}
	}
	if full[0] < '1' || full[0] > '3' {
		return &CodeError{Reason: ReasonRegion, Code: full}
	}
	for i := 1; i < len(full); i++ {
		if !isBaseChar(full[i]) {
			return &CodeError{Reason: ReasonCharset, Code: full}
		}
	}
	return nil
}

// ExtractRegion reads the region digit from a full code. It never fails:
// missing, non-numeric, or out-of-range digits give DefaultRegion.
func (IdentifierCodec) ExtractRegion(full string) int {
	if full == "" {
		return DefaultRegion
	}
	region, err := strconv.Atoi(full[:1])
	if err != nil || !IsValidRegion(region) {
		return DefaultRegion
	}
	return region
}

// Decode validates full and splits it into its parts.
func (c IdentifierCodec) Decode(full string) (Identifier, error) {
	if err := c.Validate(full); err != nil {
		return Identifier{}, err
	}
	return Identifier{RegionID: c.ExtractRegion(full), Base: full[1:], Full: full}, nil
}

// IsValidBase reports whether base is 12 characters of [A-Z0-9].
func IsValidBase(base string) bool {
	if len(base) != BaseCodeLength {
		return false
	}
	for i := 0; i < len(base); i++ {
		if !isBaseChar(base[i]) {
			return false
		}
	}
	return true
}

// CanonicalCode trims and upper-cases user-supplied code input.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isBaseChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
