package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"sword/internal/platform/logger"
)

// Properties is a flat dotted-key view of a YAML property file
// nested maps flatten with dots so `accept-packaging: {METSDSpaceSIP: {q: 1.0}}`
// and `accept-packaging.METSDSpaceSIP.q: 1.0` are the same key
type Properties map[string]string

// LoadProperties reads a YAML property file; an empty path yields empty Properties
func LoadProperties(path string) (Properties, error) {
	if strings.TrimSpace(path) == "" {
		return Properties{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read properties %s: %w", path, err)
	}
	return ParseProperties(b)
}

// ParseProperties decodes YAML bytes into Properties
func ParseProperties(b []byte) (Properties, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	out := Properties{}
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, v any, out Properties) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, out)
		}
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, fmt.Sprint(e))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(t)
	}
}

// Get returns the trimmed value for key or def when missing/empty
func (p Properties) Get(key, def string) string {
	if v := strings.TrimSpace(p[key]); v != "" {
		return v
	}
	return def
}

// Bool returns the boolean value for key or def when missing/invalid
func (p Properties) Bool(key string, def bool) bool {
	s := strings.TrimSpace(p[key])
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		logger.Get().Warn().Str("property", key).Str("value", s).Bool("default", def).Msg("invalid bool; using default")
		return def
	}
	return v
}

// Int returns the integer value for key or def when missing/invalid
func (p Properties) Int(key string, def int) int {
	s := strings.TrimSpace(p[key])
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Get().Warn().Str("property", key).Str("value", s).Int("default", def).Msg("invalid int; using default")
		return def
	}
	return v
}

// WithPrefix returns the keys under prefix, sorted, with the prefix kept
func (p Properties) WithPrefix(prefix string) []string {
	var keys []string
	for k := range p {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// MayBytes parses a humanized size (e.g. "10MB", "512KiB", "2048") or returns def
func (c Conf) MayBytes(key string, def uint64) uint64 {
	s := c.raw(key)
	if s == "" {
		return def
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		c.fallback(key, s, humanize.IBytes(def))
		return def
	}
	return n
}
