package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteRestrictions stores per-way restrictions next to a prepared graph so
// the server can rebuild the dimension filter the core was derived from.
func WriteRestrictions(path string, r map[int64]Restriction) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode restrictions: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write restrictions: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename restrictions: %w", err)
	}
	return nil
}

// ReadRestrictions loads a file written by WriteRestrictions. A missing file
// yields no restrictions.
func ReadRestrictions(path string) (map[int64]Restriction, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read restrictions %s: %w", path, err)
	}
	var r map[int64]Restriction
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse restrictions %s: %w", path, err)
	}
	return r, nil
}
