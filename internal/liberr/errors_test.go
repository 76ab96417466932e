// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package liberr

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Message(t *testing.T) {
	err := NewValidation("uuid", "nope", ErrInvalidIdentifier)
	assert.Equal(t, `uuid "nope": invalid identifier`, err.Error())
	assert.True(t, errors.Is(err, ErrInvalidIdentifier))

	withPath := WithPath(err, "sym/r.sym")
	assert.Equal(t, `sym/r.sym: uuid "nope": invalid identifier`, withPath.Error())

	// the original is left untouched
	assert.Empty(t, err.Path)
}

func TestWithPath_WrapsForeignErrors(t *testing.T) {
	err := WithPath(errors.New("bad toml"), "cmp/x.cmp")

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "cmp/x.cmp", ve.Path)
	assert.True(t, errors.Is(err, ErrInvalidRecord))

	assert.Nil(t, WithPath(nil, "x"))
}

func TestStorageError_Is(t *testing.T) {
	err := Storage("insert", "symbols", fs.ErrClosed)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, fs.ErrClosed))
	assert.Equal(t, "storage insert symbols: file already closed", err.Error())

	assert.Nil(t, Storage("insert", "symbols", nil))
}

func TestNotFoundError_Is(t *testing.T) {
	err := NotFound("device", "dev/a.dev")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrStorage))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "dev/a.dev", nf.Key)
}

func TestScanWarning(t *testing.T) {
	w := ScanWarning{Path: "broken", Err: fs.ErrPermission}
	assert.True(t, errors.Is(w, fs.ErrPermission))
	assert.Contains(t, w.Error(), "broken")
}
