// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ident

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/partlib/internal/liberr"
)

const (
	// MaxVersionSegments is the maximum number of dot separated segments.
	MaxVersionSegments = 10

	// MaxVersionSegment is the largest value of a single segment.
	MaxVersionSegment = 99999

	segmentWidth = 5
)

// Version is an element revision such as "1.2" or "0.1.3". Trailing zero
// segments are insignificant: "2.5.0.0" equals "2.5".
//
// The zero value is invalid; use ParseVersion.
type Version struct {
	segs []int // normalized, len >= 1
}

// ParseVersion parses and normalizes s.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, invalidVersion(s, "empty")
	}
	parts := strings.Split(s, ".")
	if len(parts) > MaxVersionSegments {
		return Version{}, invalidVersion(s, fmt.Sprintf("more than %d segments", MaxVersionSegments))
	}
	segs := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return Version{}, invalidVersion(s, "empty segment")
		}
		n := 0
		for i := 0; i < len(p); i++ {
			c := p[i]
			if c < '0' || c > '9' {
				return Version{}, invalidVersion(s, "non-digit character")
			}
			n = n*10 + int(c-'0')
			if n > MaxVersionSegment {
				return Version{}, invalidVersion(s, "segment out of range")
			}
		}
		segs = append(segs, n)
	}
	return Version{segs: trimZeros(segs)}, nil
}

// MustParseVersion is like ParseVersion but panics on invalid input.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsValidVersion reports whether s parses as a Version.
func IsValidVersion(s string) bool {
	_, err := ParseVersion(s)
	return err == nil
}

func invalidVersion(s, reason string) error {
	return liberr.NewValidation("version", s, fmt.Errorf("%w: %s", liberr.ErrInvalidVersion, reason))
}

func trimZeros(segs []int) []int {
	n := len(segs)
	for n > 1 && segs[n-1] == 0 {
		n--
	}
	return segs[:n]
}

// IsZero reports whether v is the unparsed zero value.
func (v Version) IsZero() bool { return len(v.segs) == 0 }

// Segments returns a copy of the normalized segments.
func (v Version) Segments() []int {
	out := make([]int, len(v.segs))
	copy(out, v.segs)
	return out
}

// String returns the normalized form, e.g. "2.5".
func (v Version) String() string {
	if len(v.segs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, s := range v.segs {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(s))
	}
	return b.String()
}

// Normalize returns v in normalized form. Versions built by ParseVersion
// are already normalized, so this is the identity on them.
func (v Version) Normalize() Version {
	return Version{segs: trimZeros(v.Segments())}
}

// ComparableForm returns a fixed-width string whose lexicographic order
// equals the numeric version order: each segment padded to five digits,
// the whole padded to ten segments.
func (v Version) ComparableForm() string {
	var b strings.Builder
	b.Grow(MaxVersionSegments * segmentWidth)
	for i := 0; i < MaxVersionSegments; i++ {
		n := 0
		if i < len(v.segs) {
			n = v.segs[i]
		}
		fmt.Fprintf(&b, "%05d", n)
	}
	return b.String()
}

// Compare returns -1, 0 or +1.
func (v Version) Compare(o Version) int {
	for i := 0; i < MaxVersionSegments; i++ {
		a, b := seg(v.segs, i), seg(o.segs, i)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

func seg(segs []int, i int) int {
	if i < len(segs) {
		return segs[i]
	}
	return 0
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// IsPrefixOf reports whether o's normalized segments start with v's.
// "1.2" is a prefix of "1.2.0.1" and of "1.2", not of "1.3".
func (v Version) IsPrefixOf(o Version) bool {
	a, b := trimZeros(v.Segments()), trimZeros(o.Segments())
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
