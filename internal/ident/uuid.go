// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ident

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jeranaias/partlib/internal/liberr"
)

// UUIDLength is the length of the canonical textual form.
const UUIDLength = 36

// UUID identifies a library element across all of its versions.
//
// Only random (version 4, RFC 4122 variant) identifiers in lowercase
// canonical form are accepted. The zero value is not a valid UUID and is
// used to mean "absent".
type UUID struct {
	s string
}

// ParseUUID validates s and returns it as a UUID.
func ParseUUID(s string) (UUID, error) {
	if !IsValidUUID(s) {
		return UUID{}, liberr.NewValidation("uuid", s, liberr.ErrInvalidIdentifier)
	}
	return UUID{s: s}, nil
}

// MustParseUUID is like ParseUUID but panics on invalid input.
// Intended for tests and constants.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// NewUUID returns a fresh random UUID.
func NewUUID() UUID {
	return UUID{s: strings.ToLower(uuid.New().String())}
}

// IsValidUUID reports whether s is a lowercase version-4 UUID with the
// RFC 4122 variant, e.g. "d2c30518-5cd1-4ce9-a569-44f783a3f66a".
func IsValidUUID(s string) bool {
	if len(s) != UUIDLength {
		return false
	}
	for i := 0; i < UUIDLength; i++ {
		c := s[i]
		switch i {
		case 8, 13, 18, 23:
			if c != '-' {
				return false
			}
		case 14:
			if c != '4' {
				return false
			}
		case 19:
			if c != '8' && c != '9' && c != 'a' && c != 'b' {
				return false
			}
		default:
			if !isLowerHex(c) {
				return false
			}
		}
	}
	return true
}

func isLowerHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

// String returns the canonical form, or "" for the zero value.
func (u UUID) String() string { return u.s }

// IsZero reports whether u is the zero value.
func (u UUID) IsZero() bool { return u.s == "" }

// Compare orders UUIDs lexicographically.
func (u UUID) Compare(o UUID) int { return strings.Compare(u.s, o.s) }

// MarshalText implements encoding.TextMarshaler.
func (u UUID) MarshalText() ([]byte, error) { return []byte(u.s), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Decoding goes through
// ParseUUID, so a decoded UUID is always valid.
func (u *UUID) UnmarshalText(b []byte) error {
	parsed, err := ParseUUID(string(b))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
