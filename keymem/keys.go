// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keymem

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is a key to install in a slot.
type Entry struct {
	Slot Slot
	ID   uint32
	Key  Key256
}

// LoadFile loads the key entries of the named YAML file.
//
// A key file looks like:
//
//	keys:
//	  - slot: 0
//	    id: 0x13fe78e9
//	    key: [feb10c69, 9c6435be, 5a9ee521, e40e420c,
//	          f665d8f7, a969302a, 63b9385d, 353ae43e]
//
// Key ids and key words are hexadecimal, with or without a 0x prefix.
// Key words are given most significant first.
func LoadFile(fname string) ([]Entry, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("keymem: could not open key file: %w", err)
	}
	defer f.Close()

	keys, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("keymem: could not load %q: %w", fname, err)
	}
	return keys, nil
}

// Decode decodes key entries from a YAML stream.
func Decode(r io.Reader) ([]Entry, error) {
	var file struct {
		Keys []struct {
			Slot int       `yaml:"slot"`
			ID   hexWord   `yaml:"id"`
			Key  []hexWord `yaml:"key"`
		} `yaml:"keys"`
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&file)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("keymem: could not decode key file: %w", err)
	}

	var (
		keys = make([]Entry, 0, len(file.Keys))
		seen = make(map[Slot]int, NumSlots)
	)
	for i, raw := range file.Keys {
		slot := Slot(raw.Slot)
		if !slot.Valid() {
			return nil, fmt.Errorf("keymem: key entry %d: %w", i, &SlotError{Slot: slot})
		}
		if j, dup := seen[slot]; dup {
			return nil, fmt.Errorf("keymem: key entry %d: slot %d already used by key entry %d", i, slot, j)
		}
		seen[slot] = i

		if len(raw.Key) != KeyWords {
			return nil, fmt.Errorf("keymem: key entry %d: got %d key words, want %d", i, len(raw.Key), KeyWords)
		}

		key := Entry{Slot: slot, ID: uint32(raw.ID)}
		for j, w := range raw.Key {
			key.Key[j] = uint32(w)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

type hexWord uint32

func (w *hexWord) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a hexadecimal word", node.Line)
	}
	txt := strings.TrimPrefix(strings.ToLower(node.Value), "0x")
	v, err := strconv.ParseUint(txt, 16, 32)
	if err != nil {
		return fmt.Errorf("line %d: invalid hexadecimal word %q: %w", node.Line, node.Value, err)
	}
	*w = hexWord(v)
	return nil
}
