package ingest

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"sword/internal/services/sword/content"
	"sword/internal/services/sword/domain"
)

// now is swapped in tests
var now = time.Now

// Filename names a stored deposit: the client's filename, or sword-<timestamp>
// with .original for kept packages and the format's first extension
func Filename(ctx context.Context, s *content.Session, d *domain.Deposit, original bool) string {
	if name := strings.TrimSpace(d.Filename); name != "" {
		return norm.NFC.String(name)
	}
	name := "sword-" + now().Format("2006-01-02T15:04:05")
	if original {
		name += ".original"
	}
	if f, ok := s.KnownFormat(ctx, d.ContentType); ok && len(f.Extensions) > 0 {
		name += "." + f.Extensions[0]
	}
	return norm.NFC.String(name)
}
