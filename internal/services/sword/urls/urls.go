// Package urls maps SWORD locations to repository objects and back
package urls

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/domain"
	"sword/internal/services/sword/swordcfg"
)

const defaultCacheSize = 1024

// Resolver is safe for concurrent use; handles never move once bound so
// positive resolutions are cached
type Resolver struct {
	cfg   swordcfg.Config
	cache *lru.Cache[string, domain.Ref]
}

// New builds a resolver with a handle cache of size entries (default when <= 0)
func New(cfg swordcfg.Config, size int) *Resolver {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, domain.Ref](size)
	if err != nil {
		// lru.New only errors on non-positive size which we guard above
		panic(err)
	}
	return &Resolver{cfg: cfg, cache: cache}
}

func (r *Resolver) resolve(ctx context.Context, rd domain.Reader, handle string) (domain.Ref, error) {
	if ref, ok := r.cache.Get(handle); ok {
		return ref, nil
	}
	ref, err := rd.ResolveHandle(ctx, handle)
	if err != nil {
		return domain.Ref{}, err
	}
	r.cache.Add(handle, ref)
	return ref, nil
}

// remainder strips base from u; ok is false when u is not under base
func remainder(base, u string) (string, bool) {
	if !strings.HasPrefix(u, base) {
		return "", false
	}
	rest := u[len(base):]
	if rest != "" && !strings.HasPrefix(rest, "/") {
		return "", false
	}
	return strings.Trim(rest, "/"), true
}

// DepositTarget resolves a deposit URL to a collection or item
func (r *Resolver) DepositTarget(ctx context.Context, rd domain.Reader, location string) (domain.Ref, error) {
	handle, ok := remainder(r.cfg.DepositURL, strings.TrimSpace(location))
	if !ok {
		return domain.Ref{}, domain.Fail(domain.BadURL, "The deposit URL is not recognised: %s", location)
	}
	if handle == "" {
		return domain.Ref{}, domain.Fail(domain.BadURL, "The deposit URL is incomplete")
	}
	ref, err := r.resolve(ctx, rd, handle)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Ref{}, domain.Fail(domain.BadURL, "The deposit URL does not resolve to a valid deposit target")
		}
		return domain.Ref{}, err
	}
	if ref.Type != domain.TypeCollection && ref.Type != domain.TypeItem {
		return domain.Ref{}, domain.Fail(domain.BadURL, "The deposit URL does not resolve to a valid deposit target")
	}
	return ref, nil
}

// IsBaseServiceDocumentURL is true for the root service document
func (r *Resolver) IsBaseServiceDocumentURL(u string) bool {
	return strings.TrimRight(strings.TrimSpace(u), "/") == r.cfg.ServiceDocumentURL
}

// ServiceDocumentTarget resolves a sub service document URL to a collection or community;
// the root URL yields the zero Ref
func (r *Resolver) ServiceDocumentTarget(ctx context.Context, rd domain.Reader, u string) (domain.Ref, error) {
	handle, ok := remainder(r.cfg.ServiceDocumentURL, strings.TrimSpace(u))
	if !ok {
		return domain.Ref{}, domain.Fail(domain.BadURL, "The service document URL is not recognised: %s", u)
	}
	if handle == "" {
		return domain.Ref{}, nil
	}
	ref, err := r.resolve(ctx, rd, handle)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Ref{}, domain.Fail(domain.BadURL, "The service document URL does not resolve to a community or collection")
		}
		return domain.Ref{}, err
	}
	if ref.Type != domain.TypeCollection && ref.Type != domain.TypeCommunity {
		return domain.Ref{}, domain.Fail(domain.BadURL, "The service document URL does not resolve to a community or collection")
	}
	return ref, nil
}

// IsBaseMediaLinkURL is true for the bare media link base
func (r *Resolver) IsBaseMediaLinkURL(u string) bool {
	return strings.TrimRight(strings.TrimSpace(u), "/") == r.cfg.MediaLinkURL
}

// MediaLinkTarget resolves <base>/<handle>/bitstream/<id> to a bitstream
func (r *Resolver) MediaLinkTarget(ctx context.Context, rd domain.Reader, u string) (domain.Ref, error) {
	rest, ok := remainder(r.cfg.MediaLinkURL, strings.TrimSpace(u))
	if !ok {
		return domain.Ref{}, domain.Fail(domain.BadURL, "The media link URL is not recognised: %s", u)
	}
	if rest == "" {
		return domain.Ref{}, domain.Fail(domain.MediaUnavailable, "There is no media associated with this URL")
	}
	i := strings.LastIndex(rest, "bitstream/")
	if i < 0 || (i > 0 && rest[i-1] != '/') {
		return domain.Ref{}, domain.Fail(domain.BadURL, "Unable to recognise the bitstream in the media link URL")
	}
	id, err := uuid.Parse(rest[i+len("bitstream/"):])
	if err != nil {
		return domain.Ref{}, domain.Fail(domain.BadURL, "Unable to recognise the bitstream in the media link URL")
	}
	if _, err := rd.Bitstream(ctx, id); err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Ref{}, domain.Fail(domain.BadURL, "The media link URL does not resolve to a bitstream")
		}
		return domain.Ref{}, err
	}
	return domain.Ref{Type: domain.TypeBitstream, ID: id}, nil
}

// DepositLocation is where clients post to deposit into obj
func (r *Resolver) DepositLocation(handle string) string {
	return r.cfg.DepositURL + "/" + handle
}

// SubServiceURL is the sub service document of obj
func (r *Resolver) SubServiceURL(handle string) string {
	return r.cfg.ServiceDocumentURL + "/" + handle
}

// MediaLinkBase is the placeholder link for deposits with nothing to point at
func (r *Resolver) MediaLinkBase() string { return r.cfg.MediaLinkURL }

// ItemMediaLink is the base for items without a handle, else base/handle
func (r *Resolver) ItemMediaLink(it *domain.Item) string {
	if it.Handle == "" {
		return r.cfg.MediaLinkURL
	}
	return r.cfg.MediaLinkURL + "/" + it.Handle
}

func owningItem(ctx context.Context, rd domain.Reader, bs *domain.Bitstream) (*domain.Item, error) {
	bundles, err := rd.BitstreamBundles(ctx, bs.ID)
	if err != nil {
		return nil, err
	}
	if len(bundles) == 0 {
		return nil, perr.Internalf("bitstream %s is not in a bundle", bs.ID)
	}
	it, err := rd.Item(ctx, bundles[0].ItemID)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, perr.Internalf("bundle %s has no item", bundles[0].ID)
	}
	return it, err
}

// BitstreamMediaLink is <item media link>/bitstream/<id>, or the base while the item has no handle
func (r *Resolver) BitstreamMediaLink(ctx context.Context, rd domain.Reader, bs *domain.Bitstream) (string, error) {
	it, err := owningItem(ctx, rd, bs)
	if err != nil {
		return "", err
	}
	link := r.ItemMediaLink(it)
	if link == r.cfg.MediaLinkURL {
		return link, nil
	}
	return link + "/bitstream/" + bs.ID.String(), nil
}

// BitstreamURL is the public retrieval URL of bs
func (r *Resolver) BitstreamURL(ctx context.Context, rd domain.Reader, bs *domain.Bitstream) (string, error) {
	it, err := owningItem(ctx, rd, bs)
	if err != nil {
		return "", err
	}
	name := url.PathEscape(bs.Name)
	if it.Handle != "" {
		return r.cfg.DSpaceURL + "/bitstream/" + it.Handle + "/" + strconv.Itoa(bs.SequenceID) + "/" + name, nil
	}
	return fmt.Sprintf("%s/retrieve/%s/%s", r.cfg.DSpaceURL, bs.ID, name), nil
}

// CanonicalHandle prefixes handle with the resolver service
func (r *Resolver) CanonicalHandle(handle string) string {
	return r.cfg.HandleCanonicalPrefix + handle
}

// GeneratorURL identifies this server in entries
func (r *Resolver) GeneratorURL() string { return r.cfg.GeneratorURL }

// Config exposes the policy snapshot the resolver was built with
func (r *Resolver) Config() swordcfg.Config { return r.cfg }
