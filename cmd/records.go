package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// readRecords decodes a JSON or YAML file holding an array of records.
// YAML is normalized to JSON first so both formats share the records'
// JSON decoders.
func readRecords[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, eris.Wrapf(err, "parse yaml %s", path)
		}
		data, err = json.Marshal(doc)
		if err != nil {
			return nil, eris.Wrapf(err, "convert yaml %s", path)
		}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrapf(err, "parse json %s", path)
	}
	return out, nil
}
