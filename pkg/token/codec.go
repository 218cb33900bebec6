// Package token packs hero token identifiers into a single uint64 so they
// can be stored and compared as plain integers. A token carries four
// sub-fields in fixed, non-overlapping bit ranges: the attempt data, the
// quest ordinal assigned at creation, a category and a version.
package token

import "errors"

var (
	ErrOutOfRange = errors.New("token field value out of range")
	ErrTooLong    = errors.New("string too long to encode")
)

// Field widths in bits. Encode and decode share these constants; changing
// them invalidates every previously minted token.
const (
	DataBits     = 24
	OrdinalBits  = 24
	CategoryBits = 8
	VersionBits  = 8

	dataShift     = 0
	ordinalShift  = DataBits
	categoryShift = DataBits + OrdinalBits
	versionShift  = DataBits + OrdinalBits + CategoryBits

	MaxData     = 1<<DataBits - 1
	MaxOrdinal  = 1<<OrdinalBits - 1
	MaxCategory = 1<<CategoryBits - 1
	MaxVersion  = 1<<VersionBits - 1
)

// The four fields must fill the word exactly.
var _ [64]struct{} = [DataBits + OrdinalBits + CategoryBits + VersionBits]struct{}{}

// ID is a packed hero token identifier.
type ID uint64

// Encode packs the four fields into one ID. Every field is range checked
// against its bit width; a value that does not fit fails with ErrOutOfRange
// rather than silently colliding with another tuple.
func Encode(data, ordinal, category, version uint64) (ID, error) {
	if data > MaxData || ordinal > MaxOrdinal || category > MaxCategory || version > MaxVersion {
		return 0, ErrOutOfRange
	}
	packed := data<<dataShift |
		ordinal<<ordinalShift |
		category<<categoryShift |
		version<<versionShift
	return ID(packed), nil
}

// Data returns the attempt data field (the hero's completion index).
func (id ID) Data() uint64 {
	return uint64(id) >> dataShift & MaxData
}

// Ordinal returns the quest ordinal field.
func (id ID) Ordinal() uint64 {
	return uint64(id) >> ordinalShift & MaxOrdinal
}

// Category returns the token category field.
func (id ID) Category() uint64 {
	return uint64(id) >> categoryShift & MaxCategory
}

// Version returns the token version field.
func (id ID) Version() uint64 {
	return uint64(id) >> versionShift & MaxVersion
}

// MaxStringLen is the longest string EncodeString accepts. One byte of the
// word holds the length, the rest hold the content, so the codec stays a
// bijection even when the content contains zero bytes.
const MaxStringLen = 7

// EncodeString packs a short string into a uint64. Strings longer than
// MaxStringLen fail with ErrTooLong.
func EncodeString(s string) (uint64, error) {
	if len(s) > MaxStringLen {
		return 0, ErrTooLong
	}
	packed := uint64(len(s)) << (8 * MaxStringLen)
	for i := 0; i < len(s); i++ {
		packed |= uint64(s[i]) << (8 * (MaxStringLen - 1 - i))
	}
	return packed, nil
}

// DecodeString unpacks a string previously packed with EncodeString.
// A length byte beyond MaxStringLen means the value was not produced by
// EncodeString and fails with ErrOutOfRange.
func DecodeString(packed uint64) (string, error) {
	n := int(packed >> (8 * MaxStringLen))
	if n > MaxStringLen {
		return "", ErrOutOfRange
	}
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = byte(packed >> (8 * (MaxStringLen - 1 - i)))
	}
	return string(buf), nil
}
