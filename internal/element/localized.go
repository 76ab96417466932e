// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package element

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"

	"github.com/jeranaias/partlib/internal/liberr"
)

// FallbackLocale must be present in every element name map and is used
// when none of the requested locales is available.
const FallbackLocale = "en_US"

// LocalizedText maps locale keys such as "en_US" or "de_CH" to text.
type LocalizedText map[string]string

// Locales returns the sorted locale keys.
func (lt LocalizedText) Locales() []string {
	out := make([]string, 0, len(lt))
	for k := range lt {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks every key is a well-formed language tag. When
// requireFallback is set the FallbackLocale must be present and non-empty.
func (lt LocalizedText) Validate(field string, requireFallback bool) error {
	for _, k := range lt.Locales() {
		if _, err := language.Parse(k); err != nil {
			return liberr.NewValidation(field, k, fmt.Errorf("%w: %v", liberr.ErrInvalidLocale, err))
		}
	}
	if requireFallback && lt[FallbackLocale] == "" {
		return liberr.NewValidation(field, FallbackLocale, fmt.Errorf("%w: missing fallback locale", liberr.ErrInvalidLocale))
	}
	return nil
}

// Resolve picks the text for the first usable locale of order.
//
// Exact keys are tried first, in order. Then the closest available
// language is chosen if the match is at least of high confidence (so
// "de_DE" may resolve to a "de_CH" entry). Finally FallbackLocale is used.
// The boolean is false when nothing matched.
func (lt LocalizedText) Resolve(order []string) (string, bool) {
	if len(lt) == 0 {
		return "", false
	}
	for _, loc := range order {
		if v, ok := lt[loc]; ok {
			return v, true
		}
	}
	if v, ok := lt.match(order); ok {
		return v, true
	}
	if v, ok := lt[FallbackLocale]; ok {
		return v, true
	}
	return "", false
}

func (lt LocalizedText) match(order []string) (string, bool) {
	var desired []language.Tag
	for _, loc := range order {
		if tag, err := language.Parse(loc); err == nil {
			desired = append(desired, tag)
		}
	}
	if len(desired) == 0 {
		return "", false
	}

	keys := lt.Locales()
	supported := make([]language.Tag, 0, len(keys))
	supportedKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		tag, err := language.Parse(k)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		supportedKeys = append(supportedKeys, k)
	}
	if len(supported) == 0 {
		return "", false
	}

	_, idx, conf := language.NewMatcher(supported).Match(desired...)
	if conf < language.High {
		return "", false
	}
	return lt[supportedKeys[idx]], true
}

// Clone returns a copy of lt.
func (lt LocalizedText) Clone() LocalizedText {
	if lt == nil {
		return nil
	}
	out := make(LocalizedText, len(lt))
	for k, v := range lt {
		out[k] = v
	}
	return out
}
