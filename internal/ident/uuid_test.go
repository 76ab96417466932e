// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ident

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/partlib/internal/liberr"
)

var validUUIDs = []string{
	"bdf7bea5-b88e-41b2-be85-c1604e8ddfca",
	"00000000-0000-4001-8000-000000000000",
	"d2c30518-5cd1-4ce9-a569-44f783a3f66a",
	"ffffffff-ffff-4fff-bfff-ffffffffffff",
	"12345678-9abc-4def-9012-3456789abcde",
}

func TestParseUUID_Valid(t *testing.T) {
	for _, s := range validUUIDs {
		u, err := ParseUUID(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, u.String())
		assert.False(t, u.IsZero())
		assert.True(t, IsValidUUID(s))
	}
}

func TestParseUUID_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"nil uuid":         "00000000-0000-0000-0000-000000000000",
		"version 1":        "15edb784-76df-11e6-8b77-86f30ca893d3",
		"version 3":        "bdf7bea5-b88e-31b2-be85-c1604e8ddfca",
		"variant c":        "bdf7bea5-b88e-41b2-ce85-c1604e8ddfca",
		"variant 7":        "bdf7bea5-b88e-41b2-7e85-c1604e8ddfca",
		"uppercase":        "BDF7BEA5-B88E-41B2-BE85-C1604E8DDFCA",
		"mixed case":       "bdf7bea5-b88e-41b2-be85-c1604e8ddfcA",
		"too short":        "bdf7bea5-b88e-41b2-be85-c1604e8ddfc",
		"too long":         "bdf7bea5-b88e-41b2-be85-c1604e8ddfcaa",
		"leading space":    " bdf7bea5-b88e-41b2-be85-c1604e8ddfca",
		"trailing newline": "bdf7bea5-b88e-41b2-be85-c1604e8ddfca\n",
		"braces":           "{bdf7bea5-b88e-41b2-be85-c1604e8ddfca}",
		"missing hyphen":   "bdf7bea5b88e-41b2-be85-c1604e8ddfca0",
		"moved hyphen":     "bdf7bea-5b88e-41b2-be85-c1604e8ddfca",
		"non hex g":        "gdf7bea5-b88e-41b2-be85-c1604e8ddfca",
		"underscore":       "bdf7bea5_b88e-41b2-be85-c1604e8ddfca",
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseUUID(s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, liberr.ErrInvalidIdentifier))

			var ve *liberr.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, s, ve.Value)
			assert.False(t, IsValidUUID(s))
		})
	}
}

func TestNewUUID(t *testing.T) {
	seen := make(map[UUID]bool)
	for i := 0; i < 100; i++ {
		u := NewUUID()
		require.True(t, IsValidUUID(u.String()), u.String())
		require.False(t, seen[u])
		seen[u] = true
	}
}

func TestUUID_Compare(t *testing.T) {
	a := MustParseUUID("00000000-0000-4001-8000-000000000000")
	b := MustParseUUID("bdf7bea5-b88e-41b2-be85-c1604e8ddfca")

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(MustParseUUID(a.String())))
	assert.True(t, a == MustParseUUID(a.String()))
}

func TestUUID_Text(t *testing.T) {
	type doc struct {
		ID UUID `json:"id"`
	}

	var d doc
	require.NoError(t, json.Unmarshal([]byte(`{"id":"d2c30518-5cd1-4ce9-a569-44f783a3f66a"}`), &d))
	assert.Equal(t, "d2c30518-5cd1-4ce9-a569-44f783a3f66a", d.ID.String())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"d2c30518-5cd1-4ce9-a569-44f783a3f66a"}`, string(out))

	err = json.Unmarshal([]byte(`{"id":"not-a-uuid"}`), &d)
	assert.True(t, errors.Is(err, liberr.ErrInvalidIdentifier))
}

func TestMustParseUUID_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseUUID("nope") })
}
