// Package domain holds the content model, deposit types and ports of the SWORD service
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectType tags repository objects
type ObjectType uint8

const (
	TypeBitstream ObjectType = iota
	TypeBundle
	TypeItem
	TypeCollection
	TypeCommunity
	TypeEPerson
	TypeGroup
)

func (t ObjectType) String() string {
	switch t {
	case TypeBitstream:
		return "bitstream"
	case TypeBundle:
		return "bundle"
	case TypeItem:
		return "item"
	case TypeCollection:
		return "collection"
	case TypeCommunity:
		return "community"
	case TypeEPerson:
		return "eperson"
	case TypeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Action is an authorization verb checked against resource policies
type Action uint8

const (
	ActionRead Action = iota
	ActionWrite
	ActionAdd
	ActionRemove
	ActionAdmin
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "READ"
	case ActionWrite:
		return "WRITE"
	case ActionAdd:
		return "ADD"
	case ActionRemove:
		return "REMOVE"
	case ActionAdmin:
		return "ADMIN"
	default:
		return "UNKNOWN"
	}
}

// ParseAction maps a policy verb back to an Action
func ParseAction(s string) (Action, bool) {
	for a := ActionRead; a <= ActionAdmin; a++ {
		if strings.EqualFold(a.String(), s) {
			return a, true
		}
	}
	return 0, false
}

// Ref identifies any repository object
type Ref struct {
	Type ObjectType
	ID   uuid.UUID
}

// IsZero reports whether r points at nothing
func (r Ref) IsZero() bool { return r.ID == uuid.Nil }

// Well known bundle names
const (
	BundleOriginal = "ORIGINAL"
	BundleLicense  = "LICENSE"
)

// AdminGroup is the group whose members pass every authorization check
const AdminGroup = "Administrator"

// EPerson is a registered user
type EPerson struct {
	ID           uuid.UUID
	Email        string
	NetID        string
	FirstName    string
	LastName     string
	PasswordHash string
	CanLogIn     bool
}

// FullName is "First Last", or the email when no name is recorded
func (e *EPerson) FullName() string {
	if e == nil {
		return ""
	}
	n := strings.TrimSpace(strings.TrimSpace(e.FirstName) + " " + strings.TrimSpace(e.LastName))
	if n == "" {
		return e.Email
	}
	return n
}

// Group is a named set of epeople
type Group struct {
	ID   uuid.UUID
	Name string
}

// Policy grants an action on an object to a person or a group
type Policy struct {
	Object  Ref
	Action  Action
	EPerson uuid.UUID
	Group   uuid.UUID
}

// Community is a node in the community tree
type Community struct {
	ID               uuid.UUID
	Handle           string
	Name             string
	ShortDescription string
	ParentID         uuid.UUID
}

// Ref returns the community reference
func (c *Community) Ref() Ref { return Ref{Type: TypeCommunity, ID: c.ID} }

// Collection holds items and is the usual deposit target
type Collection struct {
	ID               uuid.UUID
	Handle           string
	Name             string
	ShortDescription string
	License          string
	CommunityID      uuid.UUID
	WorkflowEnabled  bool
	// Template is copied into new items when the ingester is asked to use it
	Template Metadata
}

// Ref returns the collection reference
func (c *Collection) Ref() Ref { return Ref{Type: TypeCollection, ID: c.ID} }

// Item is an archival unit; Handle is empty while it sits in workflow
type Item struct {
	ID           uuid.UUID
	Handle       string
	CollectionID uuid.UUID
	SubmitterID  uuid.UUID
	InArchive    bool
	Withdrawn    bool
	LastModified time.Time
	Metadata     Metadata
}

// Ref returns the item reference
func (i *Item) Ref() Ref { return Ref{Type: TypeItem, ID: i.ID} }

// Bundle is a named group of bitstreams on an item
type Bundle struct {
	ID     uuid.UUID
	ItemID uuid.UUID
	Name   string
}

// Ref returns the bundle reference
func (b *Bundle) Ref() Ref { return Ref{Type: TypeBundle, ID: b.ID} }

// Bitstream is one stored file
type Bitstream struct {
	ID                uuid.UUID
	SequenceID        int
	Name              string
	Source            string
	Description       string
	FormatID          int
	Size              int64
	Checksum          string
	ChecksumAlgorithm string
	StoreKey          string
}

// Ref returns the bitstream reference
func (b *Bitstream) Ref() Ref { return Ref{Type: TypeBitstream, ID: b.ID} }

// BitstreamFormat is a registered file format
type BitstreamFormat struct {
	ID               int
	MIMEType         string
	ShortDescription string
	Internal         bool
	Extensions       []string
}

// UnknownFormat is the fallback format short description
const UnknownFormat = "Unknown"
