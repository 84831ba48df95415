package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	perr "sword/internal/platform/errors"
	"sword/internal/platform/logger"
	"sword/internal/services/sword/atom"
	"sword/internal/services/sword/audit"
	"sword/internal/services/sword/auth"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/ingest"
)

// AuthenticationFailed labels 401 refusals in metrics and audit rows
const AuthenticationFailed = "AuthenticationFailed"

// DepositResponse is what the transport sends back
type DepositResponse struct {
	Status int
	Entry  *atom.Entry
	// Location is the media link of what was deposited
	Location string
	Handle   string
}

// Outcome maps a deposit error to its HTTP status and SWORD error URI
func Outcome(err error) (int, string) {
	switch pe, ok := domain.AsProtocol(err); {
	case err == nil:
		return 0, ""
	case domain.IsAuthFailure(err):
		return http.StatusUnauthorized, AuthenticationFailed
	case ok:
		return pe.Status(), pe.URI
	default:
		return perr.HTTPStatus(err), domain.RepositoryError
	}
}

// Deposit runs one deposit through the session held by sc
// sc is neither committed nor aborted here
func (s *Service) Deposit(ctx context.Context, sc *auth.Context, d *domain.Deposit) (*DepositResponse, error) {
	start := time.Now()
	verbose := &domain.Verbose{}
	verbose.Printf("Initialising verbose deposit")

	target, resp, err := s.deposit(ctx, sc, d, verbose, start)
	s.observe(ctx, d, target, resp, err, time.Since(start))
	return resp, err
}

func (s *Service) deposit(ctx context.Context, sc *auth.Context, d *domain.Deposit, verbose *domain.Verbose, start time.Time) (domain.Ref, *DepositResponse, error) {
	if err := s.precheck(d, verbose); err != nil {
		return domain.Ref{}, nil, err
	}

	r := sc.Session.Reader()
	target, err := s.urls.DepositTarget(ctx, r, d.Location)
	if err != nil {
		return domain.Ref{}, nil, err
	}
	verbose.Printf("Performing deposit using location: %s", d.Location)

	ok, err := s.auth.CanSubmitTo(ctx, sc, target)
	if err != nil {
		return target, nil, err
	}
	if !ok {
		return target, nil, domain.AuthFailed("Cannot submit to the given %s with this context", target.Type)
	}
	verbose.Printf("Authenticated user %s may deposit into %s %s", sc.Authenticated.Email, target.Type, target.ID)

	var dep Depositor
	switch target.Type {
	case domain.TypeCollection:
		dep = CollectionDepositor{ingesters: s.ingesters}
	case domain.TypeItem:
		dep = ItemDepositor{ingesters: s.ingesters}
	default:
		return target, nil, perr.Internalf("no depositor for a %s", target.Type)
	}

	env := ingest.Env{Session: sc.Session, Config: s.cfg, URLs: s.urls, Packagers: s.packagers, Verbose: verbose}
	res, err := dep.Deposit(ctx, env, d, target)
	if err != nil {
		if s.cfg.KeepPackageOnFail {
			s.retain(ctx, d)
		}
		return target, nil, err
	}

	status := http.StatusAccepted
	if res.Handle != "" {
		status = http.StatusCreated
	}

	var gen atom.EntryGenerator
	switch res.Kind() {
	case domain.ResultItem:
		gen = s.itemEntries
	case domain.ResultBitstream:
		gen = s.bitstreamEntries
	default:
		return target, nil, perr.Internalf("deposit produced neither an item nor a bitstream")
	}
	entry, err := gen.Generate(ctx, atom.EntryInput{
		Reader:      r,
		Deposit:     d,
		Result:      res,
		Author:      sc.Authenticated,
		Contributor: sc.OnBehalfOf,
	})
	if err != nil {
		return target, nil, err
	}

	if d.NoOp {
		verbose.Printf("No-op deposit, undoing")
		if err := dep.Undo(ctx, env, res); err != nil {
			return target, nil, err
		}
	}

	entry.NoOp = d.NoOp
	verbose.Elapsed(start)
	if d.Verbose {
		entry.VerboseDescription = verbose.String()
	}
	return target, &DepositResponse{Status: status, Entry: entry, Location: res.MediaLink, Handle: res.Handle}, nil
}

// precheck enforces the upload limit and the client checksum
func (s *Service) precheck(d *domain.Deposit, verbose *domain.Verbose) error {
	size, err := d.Size()
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "stat deposit")
	}
	if max := s.cfg.MaxUploadBytes(); max > 0 && size > max {
		return domain.Fail(domain.MaxUploadSizeExceeded,
			"The uploaded file exceeded the maximum file size this server will accept (the file is %s but the server will only accept %s)",
			humanize.Bytes(uint64(size)), humanize.Bytes(uint64(max)))
	}
	if d.ContentMD5 == "" {
		return nil
	}
	f, err := d.Open()
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "open deposit")
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "checksum deposit")
	}
	if sum := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(sum, strings.TrimSpace(d.ContentMD5)) {
		return domain.Fail(domain.ErrorChecksumMismatch,
			"The received MD5 checksum for the deposited file did not match the checksum sent by the deposit client")
	}
	verbose.Printf("MD5 checksum matched: %s", d.ContentMD5)
	return nil
}

func (s *Service) observe(ctx context.Context, d *domain.Deposit, target domain.Ref, resp *DepositResponse, err error, took time.Duration) {
	status, uri := Outcome(err)
	ev := audit.Event{
		At:          time.Now(),
		RequestID:   logger.RequestID(ctx),
		Username:    d.Username,
		OnBehalfOf:  d.OnBehalfOf,
		Location:    d.Location,
		Packaging:   d.Packaging,
		ContentType: d.ContentType,
		ErrorURI:    uri,
		NoOp:        d.NoOp,
		Duration:    took,
		UserAgent:   d.UserAgent,
		IP:          d.IPAddress,
	}
	if !target.IsZero() {
		ev.TargetType = target.Type.String()
	}
	if size, serr := d.Size(); serr == nil {
		ev.Size = size
	}
	if resp != nil {
		status = resp.Status
		ev.Handle = resp.Handle
	}
	ev.Status = status

	s.metrics.Deposits.WithLabelValues(ev.TargetType, strconv.Itoa(status)).Inc()
	if uri != "" {
		s.metrics.Errors.WithLabelValues(uri).Inc()
	}
	s.metrics.Duration.Observe(took.Seconds())

	if aerr := s.audit.Record(ctx, ev); aerr != nil {
		s.log.Warn().Err(aerr).Str("username", d.Username).Msg("audit record failed")
	}
}
