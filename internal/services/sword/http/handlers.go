// Package http exposes the SWORD service document, deposit and media link endpoints
package http

import (
	"context"
	"io"
	"mime"
	"net"
	stdhttp "net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"sword/internal/modkit/httpkit"
	perr "sword/internal/platform/errors"
	"sword/internal/platform/logger"
	phttp "sword/internal/platform/net/http"
	"sword/internal/platform/net/http/bind"
	"sword/internal/platform/net/middleware"
	"sword/internal/services/sword/atom"
	"sword/internal/services/sword/auth"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/service"
)

// Request headers a SWORD 1.3 client sends
const (
	HeaderPackaging       = "X-Packaging"
	HeaderFormatNamespace = "X-Format-Namespace"
	HeaderNoOp            = "X-No-Op"
	HeaderVerbose         = "X-Verbose"
	HeaderSlug            = "Slug"
	HeaderContentMD5      = "Content-MD5"
)

// Realm is announced on 401 responses
const Realm = `Basic realm="SWORD"`

// Deps are the handler dependencies
type Deps struct {
	Service *service.Service
	// SpoolDir holds request bodies while a deposit runs, os.TempDir when empty
	SpoolDir string
}

type handlers struct {
	svc   *service.Service
	spool string
}

// Register mounts the SWORD routes behind Basic authentication
func Register(r httpkit.Router, d Deps) {
	h := &handlers{svc: d.Service, spool: d.SpoolDir}

	r.Group(func(g httpkit.Router) {
		g.Use(middleware.Auth(httpkit.NewPortFunc(nil), h.unauthorized))

		g.Get("/servicedocument", h.serviceDocument)
		g.Get("/servicedocument/*", h.serviceDocument)
		g.Post("/deposit", h.deposit)
		g.Post("/deposit/*", h.deposit)
		g.Get("/media-link", h.mediaLink)
		g.Get("/media-link/*", h.mediaLink)
	})
}

// under joins a configured base URL and the wildcard part of the request path
func under(base string, r *stdhttp.Request) string {
	rest := strings.Trim(chi.URLParam(r, "*"), "/")
	if rest == "" {
		return base
	}
	return base + "/" + rest
}

func clientIP(r *stdhttp.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// open authenticates the request and opens its repository session
func (h *handlers) open(r *stdhttp.Request) (*auth.Context, error) {
	user, pass, err := httpkit.BasicCredentials(r)
	if err != nil {
		return nil, domain.AuthFailed("missing basic credentials")
	}
	return h.svc.Authenticator().Authenticate(r.Context(), auth.Credentials{
		Username:   user,
		Password:   pass,
		OnBehalfOf: httpkit.OnBehalfOf(r),
		IP:         clientIP(r),
	})
}

func (h *handlers) abort(ctx context.Context, sc *auth.Context) {
	if err := sc.Abort(ctx); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("abort sword session")
	}
}

// swagger:route GET /sword/servicedocument SWORD swordServiceDocument
// @Summary SWORD service document of the repository, a community or a collection
// @Tags SWORD
// @Produce application/atomsvc+xml
// @Success 200 {string} string "app:service document"
// @Failure 401 {string} string "sword:error document"
// @Router /sword/servicedocument [get]
func (h *handlers) serviceDocument(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	sc, err := h.open(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer h.abort(ctx, sc)

	doc, err := h.svc.ServiceDocument(ctx, sc, under(h.svc.Config().ServiceDocumentURL, r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := phttp.XML(w, stdhttp.StatusOK, atom.ServiceContentType, doc); err != nil {
		logger.C(ctx).Error().Err(err).Msg("write service document")
	}
}

// swagger:route GET /sword/media-link SWORD swordMediaLink
// @Summary ATOM entry describing a deposited bitstream
// @Tags SWORD
// @Produce application/atom+xml
// @Success 200 {string} string "atom:entry document"
// @Failure 404 {string} string "sword:error document"
// @Router /sword/media-link/{handle}/bitstream/{id} [get]
func (h *handlers) mediaLink(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	sc, err := h.open(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer h.abort(ctx, sc)

	entry, err := h.svc.MediaEntry(ctx, sc, under(h.svc.Config().MediaLinkURL, r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := phttp.XML(w, stdhttp.StatusOK, atom.EntryContentType, entry); err != nil {
		logger.C(ctx).Error().Err(err).Msg("write media entry")
	}
}

// swagger:route POST /sword/deposit SWORD swordDeposit
// @Summary Deposit a package into a collection or a file into an item
// @Tags SWORD
// @Accept */*
// @Produce application/atom+xml
// @Success 201 {string} string "atom:entry of the archived item"
// @Success 202 {string} string "atom:entry of an item held in workflow"
// @Failure 400 {string} string "sword:error document"
// @Failure 412 {string} string "sword:error document"
// @Failure 413 {string} string "sword:error document"
// @Failure 415 {string} string "sword:error document"
// @Router /sword/deposit/{handle} [post]
func (h *handlers) deposit(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	d, err := h.bindDeposit(r)
	if d != nil && d.File != "" {
		defer func() {
			if err := os.Remove(d.File); err != nil && !os.IsNotExist(err) {
				logger.C(ctx).Warn().Err(err).Str("path", d.File).Msg("remove spooled deposit")
			}
		}()
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sc, err := h.open(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer h.abort(ctx, sc)

	resp, err := h.svc.Deposit(ctx, sc, d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !d.NoOp {
		if err := sc.Commit(ctx); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	if resp.Location != "" {
		w.Header().Set("Location", resp.Location)
	}
	if err := phttp.XML(w, resp.Status, atom.EntryContentType, resp.Entry); err != nil {
		logger.C(ctx).Error().Err(err).Msg("write deposit entry")
	}
}

// bindDeposit reads the deposit headers and spools the body to disk
// the returned deposit names the spool file whenever one was created, even on error
func (h *handlers) bindDeposit(r *stdhttp.Request) (*domain.Deposit, error) {
	user, pass, _ := r.BasicAuth()
	d := &domain.Deposit{
		Location:      under(h.svc.Config().DepositURL, r),
		Username:      user,
		Password:      pass,
		OnBehalfOf:    strings.TrimSpace(r.Header.Get(httpkit.HeaderOnBehalfOf)),
		ContentType:   r.Header.Get("Content-Type"),
		ContentLength: r.ContentLength,
		ContentMD5:    strings.TrimSpace(r.Header.Get(HeaderContentMD5)),
		Packaging:     packaging(r.Header),
		Filename:      filename(r.Header.Get("Content-Disposition")),
		Slug:          strings.TrimSpace(r.Header.Get(HeaderSlug)),
		UserAgent:     r.UserAgent(),
		IPAddress:     clientIP(r),
	}

	var err error
	if d.NoOp, err = flag(r.Header, HeaderNoOp); err != nil {
		return d, err
	}
	if d.Verbose, err = flag(r.Header, HeaderVerbose); err != nil {
		return d, err
	}

	if d.File, err = h.spoolBody(r); err != nil {
		return d, err
	}
	if err := bind.Struct(d); err != nil {
		msg := err.Error()
		if pe, ok := perr.As(err); ok {
			msg = pe.ToWire().Message
		}
		return d, domain.FailWrap(err, domain.ErrorBadRequest, "Bad deposit request: %s", msg)
	}
	return d, nil
}

// spoolBody copies at most one byte past the upload limit so oversized bodies
// are refused without filling the disk
func (h *handlers) spoolBody(r *stdhttp.Request) (string, error) {
	f, err := os.CreateTemp(h.spool, "sword-deposit-*")
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnavailable, "spool deposit")
	}
	defer f.Close()

	var body io.Reader = r.Body
	if max := h.svc.Config().MaxUploadBytes(); max > 0 {
		body = io.LimitReader(r.Body, max+1)
	}
	if _, err := io.Copy(f, body); err != nil {
		return f.Name(), perr.Wrap(err, perr.ErrorCodeInvalidArgument, "read deposit body")
	}
	return f.Name(), nil
}

func packaging(hdr stdhttp.Header) string {
	if p := strings.TrimSpace(hdr.Get(HeaderPackaging)); p != "" {
		return p
	}
	return strings.TrimSpace(hdr.Get(HeaderFormatNamespace))
}

// filename pulls filename= out of a Content-Disposition header; unparsable headers yield ""
func filename(disposition string) string {
	if strings.TrimSpace(disposition) == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["filename"])
}

// flag reads a true/false header; absence is false
func flag(hdr stdhttp.Header, name string) (bool, error) {
	v := strings.TrimSpace(hdr.Get(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.Fail(domain.ErrorBadRequest, "Bad %s header value: %q", name, v)
	}
	return b, nil
}

// unauthorized answers requests the Basic auth middleware turned away
func (h *handlers) unauthorized(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	h.fail(w, r, domain.AuthFailed("%s", err.Error()))
}

// fail writes err as a sword:error document
func (h *handlers) fail(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	ctx := r.Context()
	status, uri := service.Outcome(err)
	if status == 0 {
		status = stdhttp.StatusInternalServerError
	}

	summary := err.Error()
	if pe, ok := domain.AsProtocol(err); ok {
		summary = pe.Description
	} else if status >= stdhttp.StatusInternalServerError {
		summary = "An internal repository error occurred"
	}

	ev := logger.C(ctx).Warn()
	if status >= stdhttp.StatusInternalServerError {
		ev = logger.C(ctx).Error()
	}
	ev.Err(err).Int("status", status).Str("uri", uri).Str("path", r.URL.Path).Msg("sword request failed")

	if status == stdhttp.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", Realm)
	}
	doc := atom.NewErrorDocument(uri, summary, r.UserAgent(), time.Now().UTC().Format(time.RFC3339))
	if err := phttp.XML(w, status, atom.EntryContentType, doc); err != nil {
		logger.C(ctx).Error().Err(err).Msg("write sword error document")
	}
}
