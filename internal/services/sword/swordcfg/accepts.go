package swordcfg

import (
	"context"
	"fmt"
	"strings"

	"sword/internal/services/sword/domain"
)

// AcceptsFor lists the MIME types a deposit target takes
func (c Config) AcceptsFor(ctx context.Context, r domain.Reader, target domain.Ref) ([]string, error) {
	switch target.Type {
	case domain.TypeCollection:
		return append([]string(nil), c.Accepts...), nil
	case domain.TypeItem:
		return ItemAccepts(ctx, r)
	default:
		return nil, fmt.Errorf("no accepts for a %s", target.Type)
	}
}

// ItemAccepts is every non-internal registered format
func ItemAccepts(ctx context.Context, r domain.Reader) ([]string, error) {
	formats, err := r.Formats(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range formats {
		if !f.Internal {
			out = append(out, f.MIMEType)
		}
	}
	return out, nil
}

// IsAcceptableContentType is membership in AcceptsFor, ignoring case
func (c Config) IsAcceptableContentType(ctx context.Context, r domain.Reader, contentType string, target domain.Ref) (bool, error) {
	accepts, err := c.AcceptsFor(ctx, r, target)
	if err != nil {
		return false, err
	}
	ct := strings.TrimSpace(contentType)
	for _, a := range accepts {
		if strings.EqualFold(a, ct) {
			return true, nil
		}
	}
	return false, nil
}

// IsSupportedPackaging accepts an empty value; collections consult their scoped set, items the global one
func (c Config) IsSupportedPackaging(packaging string, target domain.Ref, handle string) bool {
	packaging = strings.TrimSpace(packaging)
	if packaging == "" {
		return true
	}
	var set map[string]float64
	switch target.Type {
	case domain.TypeCollection:
		set = c.AcceptPackaging(handle)
	case domain.TypeItem:
		set = c.GlobalPackaging()
	default:
		return false
	}
	_, ok := set[packaging]
	return ok
}
