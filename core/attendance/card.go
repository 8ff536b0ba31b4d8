package attendance

import "strings"

// ReaderType classifies which generation of reader hardware likely produced a
// raw scan. Informational only: it never influences normalization.
type ReaderType string

const (
	ReaderPaddedLong  ReaderType = "padded-long"
	ReaderLegacyShort ReaderType = "legacy-short"
	ReaderUnknown     ReaderType = "unknown"
)

// legacyMaxLen is the longest UID the legacy reader fleet ever emitted.
const legacyMaxLen = 12

// NormalizeUID maps a raw scan token to the canonical card UID. It is pure and
// total: any input yields a UID, never an error.
//
// A hardware fleet migration left two wire formats in the field: the new
// readers zero-pad the legacy short UID to a fixed width, while the card
// registry stays keyed by the short form. Both formats must collapse to the
// same canonical UID.
//
// There is no checksum, so an unrelated short UID could collide with the
// stripped remainder of a padded one. Accepted risk of the heuristic.
func NormalizeUID(raw string) string {
	cleaned := stripNonDigits(raw)

	// a run of >=6 leading zeros marks the padded encoding
	if strings.HasPrefix(cleaned, "000000") {
		return strings.TrimLeft(cleaned, "0")
	}
	// legacy short UIDs (<= 12 digits) and unrecognized shapes pass through unchanged
	return cleaned
}

// DetectReaderType guesses the hardware generation behind a raw scan.
func DetectReaderType(raw string) ReaderType {
	cleaned := stripNonDigits(raw)
	switch {
	case strings.HasPrefix(cleaned, "000000"):
		return ReaderPaddedLong
	case len(cleaned) > 0 && len(cleaned) <= legacyMaxLen:
		return ReaderLegacyShort
	default:
		return ReaderUnknown
	}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
