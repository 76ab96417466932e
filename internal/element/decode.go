// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package element

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/partlib/internal/util"
)

// Format selects the descriptor encoding of element files.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// IsValid checks if the format is supported.
func (f Format) IsValid() bool {
	return f == FormatTOML || f == FormatYAML
}

// Decoder turns raw descriptor bytes into a Descriptor.
type Decoder interface {
	Decode(data []byte) (*Descriptor, error)
}

// DecoderFor returns the decoder of a format.
func DecoderFor(f Format) (Decoder, error) {
	switch f {
	case FormatTOML, "":
		return TOMLDecoder{}, nil
	case FormatYAML:
		return YAMLDecoder{}, nil
	}
	return nil, fmt.Errorf("unsupported element format %q", f)
}

// Descriptor is the on-disk form of an element. Identifiers are kept as
// strings so that validation can report the offending field.
type Descriptor struct {
	UUID        string            `toml:"uuid" yaml:"uuid"`
	Version     string            `toml:"version" yaml:"version"`
	Categories  []string          `toml:"categories,omitempty" yaml:"categories,omitempty"`
	Parent      string            `toml:"parent,omitempty" yaml:"parent,omitempty"`
	Component   string            `toml:"component,omitempty" yaml:"component,omitempty"`
	Package     string            `toml:"package,omitempty" yaml:"package,omitempty"`
	Name        map[string]string `toml:"name,omitempty" yaml:"name,omitempty"`
	Description map[string]string `toml:"description,omitempty" yaml:"description,omitempty"`
	Keywords    map[string]string `toml:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// TOMLDecoder decodes TOML descriptors. Unknown keys are ignored.
type TOMLDecoder struct{}

func (TOMLDecoder) Decode(data []byte) (*Descriptor, error) {
	var d Descriptor
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// YAMLDecoder decodes YAML descriptors.
type YAMLDecoder struct{}

func (YAMLDecoder) Decode(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Encode renders d in format f. Used to write fixtures and new elements.
func Encode(f Format, d *Descriptor) ([]byte, error) {
	switch f {
	case FormatTOML, "":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(d); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML:
		return yaml.Marshal(d)
	}
	return nil, fmt.Errorf("unsupported element format %q", f)
}

// WriteFile encodes d in format f and replaces path atomically, so a
// concurrent rescan never reads a partially written element.
func WriteFile(path string, f Format, d *Descriptor) error {
	data, err := Encode(f, d)
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, data, 0644)
}
