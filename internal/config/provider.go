package config

import "errors"

var errReadBytesNotSupported = errors.New("config: map provider only supports Read")

// mapProvider feeds an in-memory map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytesNotSupported
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

func defaults() mapProvider {
	return mapProvider{
		"timeout": "5s",
		"log": map[string]any{
			"level":  "info",
			"format": FormatText,
		},
	}
}
