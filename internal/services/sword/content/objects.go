package content

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/bitstore"
	"sword/internal/services/sword/domain"
)

// CreateItem makes an unarchived item in col submitted by the acting user
func (s *Session) CreateItem(ctx context.Context, col *domain.Collection) (*domain.Item, error) {
	if err := s.authorize(ctx, domain.ActionAdd, col.Ref()); err != nil {
		return nil, err
	}
	it := &domain.Item{CollectionID: col.ID}
	if s.user != nil {
		it.SubmitterID = s.user.ID
	}
	if err := s.unit.CreateItem(ctx, it); err != nil {
		return nil, err
	}
	if err := s.grantUser(ctx, it.Ref(), domain.ActionRead, domain.ActionWrite, domain.ActionAdd, domain.ActionRemove); err != nil {
		return nil, err
	}
	return it, nil
}

// UpdateItem persists item fields and metadata
func (s *Session) UpdateItem(ctx context.Context, it *domain.Item) error {
	if err := s.authorize(ctx, domain.ActionWrite, it.Ref()); err != nil {
		return err
	}
	return s.unit.UpdateItem(ctx, it)
}

// Bundle returns the named bundle of it, creating it when missing
func (s *Session) Bundle(ctx context.Context, it *domain.Item, name string) (*domain.Bundle, error) {
	bundles, err := s.unit.Bundles(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	for i := range bundles {
		if bundles[i].Name == name {
			return &bundles[i], nil
		}
	}
	if err := s.authorize(ctx, domain.ActionAdd, it.Ref()); err != nil {
		return nil, err
	}
	b := &domain.Bundle{ItemID: it.ID, Name: name}
	if err := s.unit.CreateBundle(ctx, b); err != nil {
		return nil, err
	}
	if err := s.grantUser(ctx, b.Ref(), domain.ActionAdd, domain.ActionRemove); err != nil {
		return nil, err
	}
	return b, nil
}

// NewBitstream describes bytes to store
type NewBitstream struct {
	Name        string
	Source      string
	Description string
	MIMEType    string
	Size        int64
	Body        io.Reader
}

// StoreBitstream writes the bytes to the blob store and links a bitstream into b
func (s *Session) StoreBitstream(ctx context.Context, b *domain.Bundle, in NewBitstream) (*domain.Bitstream, error) {
	if s.done {
		return nil, ErrFinished
	}
	if err := s.authorizeAny(ctx, domain.ActionAdd, b.Ref(), domain.ActionWrite, domain.Ref{Type: domain.TypeItem, ID: b.ItemID}); err != nil {
		return nil, err
	}
	size := in.Size
	if size == 0 {
		size = -1
	}
	key := bitstore.NewKey()
	sum := md5.New()
	n := &counter{}
	if err := s.bits.Put(ctx, key, io.TeeReader(in.Body, io.MultiWriter(sum, n)), size); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "store %s", in.Name)
	}
	s.keys = append(s.keys, key)

	bs := &domain.Bitstream{
		Name:              in.Name,
		Source:            in.Source,
		Description:       in.Description,
		Size:              n.n,
		Checksum:          hex.EncodeToString(sum.Sum(nil)),
		ChecksumAlgorithm: "MD5",
		StoreKey:          key,
	}
	if f, err := s.FormatFor(ctx, in.MIMEType); err == nil {
		bs.FormatID = f.ID
	} else if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, err
	}
	if err := s.unit.AddBitstream(ctx, b.ID, bs); err != nil {
		return nil, err
	}
	return bs, nil
}

// RemoveBitstream unlinks bs from b
func (s *Session) RemoveBitstream(ctx context.Context, b *domain.Bundle, bs *domain.Bitstream) error {
	if err := s.authorizeAny(ctx, domain.ActionRemove, b.Ref(), domain.ActionWrite, domain.Ref{Type: domain.TypeItem, ID: b.ItemID}); err != nil {
		return err
	}
	return s.unit.RemoveBitstream(ctx, b.ID, bs.ID)
}

// FormatFor finds the format registered for a MIME type, falling back to Unknown
func (s *Session) FormatFor(ctx context.Context, mimeType string) (*domain.BitstreamFormat, error) {
	if mimeType != "" {
		if f, err := s.unit.FormatByMIME(ctx, mimeType); err == nil {
			return f, nil
		}
		if base, _, err := mime.ParseMediaType(mimeType); err == nil && base != mimeType {
			if f, err := s.unit.FormatByMIME(ctx, base); err == nil {
				return f, nil
			}
		}
	}
	formats, err := s.unit.Formats(ctx)
	if err != nil {
		return nil, err
	}
	for i := range formats {
		if formats[i].ShortDescription == domain.UnknownFormat {
			return &formats[i], nil
		}
	}
	return nil, perr.NotFoundf("no format for %q", mimeType)
}

// KnownFormat is like FormatFor without the Unknown fallback
func (s *Session) KnownFormat(ctx context.Context, mimeType string) (*domain.BitstreamFormat, bool) {
	f, err := s.FormatFor(ctx, mimeType)
	if err != nil || f.ShortDescription == domain.UnknownFormat {
		return nil, false
	}
	return f, true
}

// StartWorkflow hands a new item to review instead of archiving it
func (s *Session) StartWorkflow(ctx context.Context, it *domain.Item) error {
	if err := s.authorize(ctx, domain.ActionWrite, it.Ref()); err != nil {
		return err
	}
	return s.unit.StartWorkflow(ctx, it.ID, it.CollectionID)
}

// InstallOptions controls handle assignment when archiving
type InstallOptions struct {
	Prefix    string
	Canonical string
	// Handle is reused when set and still free
	Handle string
	Now    time.Time
}

// InstallItem archives it under a handle and stamps the accession dates
func (s *Session) InstallItem(ctx context.Context, it *domain.Item, opt InstallOptions) error {
	if err := s.authorize(ctx, domain.ActionWrite, it.Ref()); err != nil {
		return err
	}
	h, err := s.pickHandle(ctx, opt)
	if err != nil {
		return err
	}
	if err := s.unit.BindHandle(ctx, h, it.Ref()); err != nil {
		return err
	}
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}
	stamp := now.UTC().Format("2006-01-02T15:04:05Z")
	it.Handle = h
	it.InArchive = true
	it.Metadata.Add("dc.date.accessioned", "", stamp)
	if len(it.Metadata.Values("dc.date.available")) == 0 {
		it.Metadata.Add("dc.date.available", "", stamp)
	}
	it.Metadata.Add("dc.identifier.uri", "", opt.Canonical+h)
	return s.unit.UpdateItem(ctx, it)
}

func (s *Session) pickHandle(ctx context.Context, opt InstallOptions) (string, error) {
	if h := strings.TrimSpace(opt.Handle); h != "" {
		_, err := s.unit.ResolveHandle(ctx, h)
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return h, nil
		}
		if err != nil {
			return "", err
		}
	}
	for {
		n, err := s.unit.NextHandleSuffix(ctx)
		if err != nil {
			return "", err
		}
		h := fmt.Sprintf("%s/%d", opt.Prefix, n)
		// restored handles can sit ahead of the sequence
		_, err = s.unit.ResolveHandle(ctx, h)
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return h, nil
		}
		if err != nil {
			return "", err
		}
	}
}

type counter struct{ n int64 }

func (c *counter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
