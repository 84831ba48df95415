package swordcfg

import (
	"fmt"
	"strings"
)

const packagingPrefix = "accept-packaging."

// Packaging is one acceptable packaging format
type Packaging struct {
	Name       string
	Identifier string
	Q          float64
}

// PackagingSet holds the global entries plus entries scoped to a collection handle
type PackagingSet struct {
	Global map[string]Packaging
	Scoped map[string]map[string]Packaging
}

type partial struct {
	id   string
	q    string
	qKey string
}

// ParsePackaging reads accept-packaging.[<handle>.]<name>.(identifier|q)
// the handle is whatever precedes the name, so dotted handles work
func ParsePackaging(props map[string]string) (PackagingSet, error) {
	set := PackagingSet{Global: map[string]Packaging{}, Scoped: map[string]map[string]Packaging{}}
	type scopeName struct{ handle, name string }
	parts := map[scopeName]*partial{}

	for key, val := range props {
		if !strings.HasPrefix(key, packagingPrefix) {
			continue
		}
		rest := strings.TrimPrefix(key, packagingPrefix)
		dot := strings.LastIndex(rest, ".")
		if dot <= 0 {
			return set, fmt.Errorf("malformed packaging key %q", key)
		}
		attr := rest[dot+1:]
		head := rest[:dot]
		sn := scopeName{name: head}
		if i := strings.LastIndex(head, "."); i > 0 {
			sn = scopeName{handle: head[:i], name: head[i+1:]}
		}
		p := parts[sn]
		if p == nil {
			p = &partial{}
			parts[sn] = p
		}
		switch attr {
		case "identifier":
			p.id = strings.TrimSpace(val)
		case "q":
			p.q, p.qKey = strings.TrimSpace(val), key
		default:
			return set, fmt.Errorf("unknown packaging attribute %q in %q", attr, key)
		}
	}

	for sn, p := range parts {
		if p.id == "" {
			return set, fmt.Errorf("packaging %q has no identifier", sn.name)
		}
		e := Packaging{Name: sn.name, Identifier: p.id, Q: parseQ(p.qKey, p.q)}
		if sn.handle == "" {
			set.Global[sn.name] = e
			continue
		}
		if set.Scoped[sn.handle] == nil {
			set.Scoped[sn.handle] = map[string]Packaging{}
		}
		set.Scoped[sn.handle][sn.name] = e
	}
	if len(set.Global) == 0 && len(set.Scoped) == 0 {
		set.Global["METSDSpaceSIP"] = Packaging{Name: "METSDSpaceSIP", Identifier: METSDSpaceSIP, Q: 1.0}
	}
	return set, nil
}

// AcceptPackaging maps identifier to q for a collection; scoped names override global ones
func (c Config) AcceptPackaging(handle string) map[string]float64 {
	merged := map[string]Packaging{}
	for n, p := range c.Packaging.Global {
		merged[n] = p
	}
	if handle != "" {
		for n, p := range c.Packaging.Scoped[handle] {
			merged[n] = p
		}
	}
	out := make(map[string]float64, len(merged))
	for _, p := range merged {
		out[p.Identifier] = p.Q
	}
	return out
}

// GlobalPackaging maps identifier to q for the unscoped entries
func (c Config) GlobalPackaging() map[string]float64 { return c.AcceptPackaging("") }
