package domain

import (
	"context"

	"github.com/google/uuid"
)

// Store opens units of work over the content repository
type Store interface {
	Begin(ctx context.Context) (Unit, error)
	Ping(ctx context.Context) error
}

// Unit is one transactional view of the repository; reads observe the unit's own writes
// lookups of missing objects return perr.ErrNotFound
type Unit interface {
	Reader
	Writer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Reader is the read side of a Unit
type Reader interface {
	EPerson(ctx context.Context, id uuid.UUID) (*EPerson, error)
	EPersonByEmail(ctx context.Context, email string) (*EPerson, error)
	EPersonByNetID(ctx context.Context, netid string) (*EPerson, error)
	GroupByName(ctx context.Context, name string) (*Group, error)

	ResolveHandle(ctx context.Context, handle string) (Ref, error)
	Community(ctx context.Context, id uuid.UUID) (*Community, error)
	Collection(ctx context.Context, id uuid.UUID) (*Collection, error)
	Item(ctx context.Context, id uuid.UUID) (*Item, error)
	Bundle(ctx context.Context, id uuid.UUID) (*Bundle, error)
	Bitstream(ctx context.Context, id uuid.UUID) (*Bitstream, error)

	// Communities lists the children of parent, or the top level when parent is uuid.Nil
	Communities(ctx context.Context, parent uuid.UUID) ([]Community, error)
	// Collections lists collections of a community, or all when community is uuid.Nil
	Collections(ctx context.Context, community uuid.UUID) ([]Collection, error)
	// ArchivedItems lists the archived items owned by a collection
	ArchivedItems(ctx context.Context, collection uuid.UUID) ([]Item, error)
	Bundles(ctx context.Context, item uuid.UUID) ([]Bundle, error)
	BundleBitstreams(ctx context.Context, bundle uuid.UUID) ([]Bitstream, error)
	BitstreamBundles(ctx context.Context, bitstream uuid.UUID) ([]Bundle, error)

	Formats(ctx context.Context) ([]BitstreamFormat, error)
	Format(ctx context.Context, id int) (*BitstreamFormat, error)
	FormatByMIME(ctx context.Context, mime string) (*BitstreamFormat, error)

	// Allowed reports a direct or group policy granting action on obj
	Allowed(ctx context.Context, eperson uuid.UUID, action Action, obj Ref) (bool, error)
	IsMember(ctx context.Context, eperson uuid.UUID, group string) (bool, error)
}

// Writer is the write side of a Unit; callers enforce authorization
type Writer interface {
	CreateEPerson(ctx context.Context, e *EPerson) error
	CreateGroup(ctx context.Context, g *Group) error
	AddGroupMember(ctx context.Context, group, eperson uuid.UUID) error
	Grant(ctx context.Context, p Policy) error

	CreateCommunity(ctx context.Context, c *Community) error
	CreateCollection(ctx context.Context, c *Collection) error
	CreateItem(ctx context.Context, it *Item) error
	UpdateItem(ctx context.Context, it *Item) error
	CreateBundle(ctx context.Context, b *Bundle) error
	// AddBitstream stores bs in bundle and assigns the next item wide sequence id
	AddBitstream(ctx context.Context, bundle uuid.UUID, bs *Bitstream) error
	RemoveBitstream(ctx context.Context, bundle, bitstream uuid.UUID) error
	CreateFormat(ctx context.Context, f *BitstreamFormat) error

	// NextHandleSuffix draws from the handle sequence
	NextHandleSuffix(ctx context.Context) (int64, error)
	// BindHandle assigns handle to ref; an existing handle is a duplicate key error
	BindHandle(ctx context.Context, handle string, ref Ref) error
	StartWorkflow(ctx context.Context, item, collection uuid.UUID) error
}
