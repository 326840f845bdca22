package domain

import (
	"strings"
	"time"
)

// PostalCodeLength is the number of digits in a normalized CEP.
const PostalCodeLength = 8

// SourceViaCEP tags records resolved through the ViaCEP service.
const SourceViaCEP = "ViaCEP"

// PostalRecord is one resolved CEP.
// PostalCode is always the 8-digit normalized key. RegionID is derived from
// State when the record is written and never taken from an upstream payload.
// Records are immutable after creation apart from Active (soft delete).
type PostalRecord struct {
	ID           int64     `json:"id,omitempty"`
	RawCode      string    `json:"raw_code,omitempty"`
	PostalCode   string    `json:"postal_code"`
	Formatted    string    `json:"formatted"`
	State        string    `json:"state"`
	City         string    `json:"city"`
	Neighborhood string    `json:"neighborhood,omitempty"`
	Street       string    `json:"street,omitempty"`
	RegionID     int       `json:"region_id"`
	RegionName   string    `json:"region_name"`
	Source       string    `json:"source"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// ExternalAddress is an address as returned by an external lookup service.
// It deliberately has no region field: region is always computed locally.
type ExternalAddress struct {
	PostalCode   string
	Street       string
	Complement   string
	Neighborhood string
	City         string
	State        string
	IBGE         string
	GIA          string
	DDD          string
	SIAFI        string
}

// NewPostalRecord builds the record written to the cache after a successful
// external lookup. normalized must already have passed NormalizePostalCode.
func NewPostalRecord(raw, normalized string, addr ExternalAddress) PostalRecord {
	state := strings.ToUpper(strings.TrimSpace(addr.State))
	region := RegionFor(state)
	return PostalRecord{
		RawCode:      raw,
		PostalCode:   normalized,
		Formatted:    FormatPostalCode(normalized),
		State:        state,
		City:         strings.TrimSpace(addr.City),
		Neighborhood: strings.TrimSpace(addr.Neighborhood),
		Street:       strings.TrimSpace(addr.Street),
		RegionID:     region,
		RegionName:   RegionName(region),
		Source:       SourceViaCEP,
		Active:       true,
	}
}

// StripNonDigits removes every character that is not an ASCII digit.
func StripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NormalizePostalCode strips formatting from raw and checks the result.
// It returns ErrInvalidFormat when the digits are not exactly eight or are
// one digit repeated eight times ("00000000" .. "99999999").
func NormalizePostalCode(raw string) (string, error) {
	digits := StripNonDigits(raw)
	if len(digits) != PostalCodeLength {
		return digits, NewError(ErrInvalidFormat, "", "CEP must have exactly 8 digits", nil)
	}
	if isRepeatedDigit(digits) {
		return digits, NewError(ErrInvalidFormat, "", "CEP is a degenerate repeated-digit code", nil)
	}
	return digits, nil
}

func isRepeatedDigit(digits string) bool {
	return strings.Count(digits, digits[:1]) == len(digits)
}

// FormatPostalCode renders a CEP as NNNNN-NNN. Input that does not reduce to
// eight digits is returned unchanged.
func FormatPostalCode(code string) string {
	digits := StripNonDigits(code)
	if len(digits) != PostalCodeLength {
		return code
	}
	return digits[:5] + "-" + digits[5:]
}

// PostalCodeCheck is the offline validation result for a raw CEP.
type PostalCodeCheck struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized,omitempty"`
	Formatted  string `json:"formatted,omitempty"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
}

// CheckPostalCode validates raw without any lookup.
func CheckPostalCode(raw string) PostalCodeCheck {
	c := PostalCodeCheck{Input: raw}
	code, err := NormalizePostalCode(raw)
	if err != nil {
		c.Reason = Detail(err)
		return c
	}
	c.Normalized = code
	c.Formatted = FormatPostalCode(code)
	c.Valid = true
	return c
}
