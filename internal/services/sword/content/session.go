// Package content is the unit of work the deposit path runs in
//
// A Session wraps one repository unit plus the blob store. Reads are open; writes
// check the acting user's policies unless the call sits inside AsSystem. Blobs written
// during the session are deleted again when the session aborts.
package content

import (
	"context"
	"errors"
	"io"

	"sword/internal/platform/logger"
	"sword/internal/services/sword/bitstore"
	"sword/internal/services/sword/domain"
)

// ErrFinished is returned when a committed or aborted session is used again
var ErrFinished = errors.New("content: session already finished")

// Session is a request scoped unit of work
type Session struct {
	unit   domain.Unit
	bits   bitstore.Store
	user   *domain.EPerson
	system int
	keys   []string
	done   bool
}

// Open begins a unit on st
func Open(ctx context.Context, st domain.Store, bits bitstore.Store) (*Session, error) {
	u, err := st.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{unit: u, bits: bits}, nil
}

// Reader exposes unrestricted reads
func (s *Session) Reader() domain.Reader { return s.unit }

// SetUser sets the acting user for writes
func (s *Session) SetUser(e *domain.EPerson) { s.user = e }

// User is the acting user, nil when anonymous
func (s *Session) User() *domain.EPerson { return s.user }

// Privileged reports whether writes skip authorization
func (s *Session) Privileged() bool { return s.system > 0 }

// AsSystem runs fn with authorization turned off; calls nest
func (s *Session) AsSystem(fn func() error) error {
	s.system++
	defer func() { s.system-- }()
	return fn()
}

// Done reports whether the session was committed or aborted
func (s *Session) Done() bool { return s.done }

// Commit makes the unit durable; blobs are removed when the commit fails
func (s *Session) Commit(ctx context.Context) error {
	if s.done {
		return ErrFinished
	}
	s.done = true
	if err := s.unit.Commit(ctx); err != nil {
		s.dropBlobs(ctx)
		return err
	}
	s.keys = nil
	return nil
}

// Abort discards the unit and any blobs it wrote; a no-op after Commit
func (s *Session) Abort(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	err := s.unit.Rollback(ctx)
	s.dropBlobs(ctx)
	return err
}

func (s *Session) dropBlobs(ctx context.Context) {
	for _, k := range s.keys {
		if err := s.bits.Delete(ctx, k); err != nil {
			logger.C(ctx).Warn().Err(err).Str("key", k).Msg("bitstore cleanup failed")
		}
	}
	s.keys = nil
}

// Retrieve opens the stored bytes of bs
func (s *Session) Retrieve(ctx context.Context, bs *domain.Bitstream) (io.ReadCloser, error) {
	return s.bits.Get(ctx, bs.StoreKey)
}
