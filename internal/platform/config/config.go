// Package config reads settings from prefixed environment variables
// and from the properties files deployments carry alongside them
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"sword/internal/platform/logger"
)

// Conf is a namespaced view over environment variables (SWORD_, BITSTORE_, LDAP_)
type Conf struct{ prefix string }

// New creates a root Conf (no prefix)
func New() Conf { return Conf{} }

// Prefix creates a child Conf with an additional prefix, e.g. cfg.Prefix("SWORD_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

// raw is the trimmed value; empty means unset
func (c Conf) raw(key string) string { return strings.TrimSpace(os.Getenv(c.key(key))) }

// fallback logs a value that failed to parse; def is used instead
func (c Conf) fallback(key, value string, def any) {
	logger.Get().Warn().Str("key", c.key(key)).Str("value", value).Interface("default", def).Msg("invalid value; using default")
}

// MustString panics if the given key is missing or empty
func (c Conf) MustString(key string) string {
	v := c.raw(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

// MayString returns the value or def if missing/empty
func (c Conf) MayString(key, def string) string {
	if v := c.raw(key); v != "" {
		return v
	}
	return def
}

// MayInt returns the value or def if missing, empty or not an int
func (c Conf) MayInt(key string, def int) int {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		c.fallback(key, s, def)
		return def
	}
	return v
}

// MayBool returns the value or def if missing, empty or not a bool
func (c Conf) MayBool(key string, def bool) bool {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		c.fallback(key, s, def)
		return def
	}
	return v
}

// MayDuration returns the value or def if missing, empty or not a duration (250ms, 10m)
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s := c.raw(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		c.fallback(key, s, def.String())
		return def
	}
	return d
}

// MayCSV splits a comma-separated value, dropping blanks; def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(c.raw(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the value when it is one of allowed (case-insensitive) and panics otherwise
// an unset key yields def without checking it
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.raw(key)
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return v
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
