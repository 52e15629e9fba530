package route

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a route file (a JSON array or YAML sequence of waypoint
// records) and normalizes it.
func LoadFile(path string, now time.Time) (*Route, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		recs, err = ParseRecordsYAML(b)
	default:
		recs, err = ParseRecordsJSON(b)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	raws, err := DecodeRawWaypoints(recs)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return Normalize(raws, now)
}

// ParseRecordsJSON decodes a JSON array of objects. Numbers are kept as
// json.Number so large unix-millisecond timestamps survive intact.
func ParseRecordsJSON(b []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var recs []map[string]any
	if err := dec.Decode(&recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ParseRecordsYAML decodes a YAML sequence of mappings.
func ParseRecordsYAML(b []byte) ([]map[string]any, error) {
	var recs []map[string]any
	if err := yaml.Unmarshal(b, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
