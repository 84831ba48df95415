package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sword/internal/services/sword/domain"
)

// retain copies a failed upload and its headers to FailedPackageDir
// failures are logged and never replace the deposit error
func (s *Service) retain(ctx context.Context, d *domain.Deposit) {
	base := filepath.Join(s.cfg.FailedPackageDir,
		fmt.Sprintf("sword-%s-%d", safeName(d.Username), time.Now().UnixMilli()))
	log := s.log.With().Str("username", d.Username).Str("path", base).Logger()

	if err := copyFile(d.File, base); err != nil {
		log.Warn().Err(err).Msg("could not keep failed deposit package")
		return
	}
	if err := os.WriteFile(base+"-headers", []byte(headerDump(d)), 0o600); err != nil {
		log.Warn().Err(err).Msg("could not keep failed deposit headers")
		return
	}
	log.Info().Msg("kept failed deposit package")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func headerDump(d *domain.Deposit) string {
	var b strings.Builder
	line := func(k string, v any) { fmt.Fprintf(&b, "%s=%v\n", k, v) }
	line("Content-Disposition", "filename="+d.Filename)
	line("Content-Type", d.ContentType)
	line("Content-Length", d.ContentLength)
	line("Content-MD5", d.ContentMD5)
	line("X-Packaging", d.Packaging)
	line("X-On-Behalf-Of", d.OnBehalfOf)
	line("X-Verbose", d.Verbose)
	line("X-No-Op", d.NoOp)
	line("Slug", d.Slug)
	line("User name", d.Username)
	return b.String()
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_', r == '@':
			return r
		}
		return '_'
	}, s)
}
