package repo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/domain"
)

// state is one consistent snapshot of the in-memory repository
type state struct {
	epeople     map[uuid.UUID]domain.EPerson
	groups      map[uuid.UUID]domain.Group
	members     map[uuid.UUID]map[uuid.UUID]bool
	policies    []domain.Policy
	communities map[uuid.UUID]domain.Community
	collections map[uuid.UUID]domain.Collection
	items       map[uuid.UUID]domain.Item
	bundles     map[uuid.UUID]domain.Bundle
	bitstreams  map[uuid.UUID]domain.Bitstream
	bundleBits  map[uuid.UUID][]uuid.UUID
	formats     map[int]domain.BitstreamFormat
	handles     map[string]domain.Ref
	workflow    map[uuid.UUID]uuid.UUID
	formatSeq   int
}

func newState() *state {
	return &state{
		epeople:     map[uuid.UUID]domain.EPerson{},
		groups:      map[uuid.UUID]domain.Group{},
		members:     map[uuid.UUID]map[uuid.UUID]bool{},
		communities: map[uuid.UUID]domain.Community{},
		collections: map[uuid.UUID]domain.Collection{},
		items:       map[uuid.UUID]domain.Item{},
		bundles:     map[uuid.UUID]domain.Bundle{},
		bitstreams:  map[uuid.UUID]domain.Bitstream{},
		bundleBits:  map[uuid.UUID][]uuid.UUID{},
		formats:     map[int]domain.BitstreamFormat{},
		handles:     map[string]domain.Ref{},
		workflow:    map[uuid.UUID]uuid.UUID{},
	}
}

func cloneMap[K comparable, V any](m map[K]V, f func(V) V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		if f != nil {
			v = f(v)
		}
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	c := &state{
		epeople:     cloneMap(s.epeople, nil),
		groups:      cloneMap(s.groups, nil),
		policies:    append([]domain.Policy(nil), s.policies...),
		communities: cloneMap(s.communities, nil),
		collections: cloneMap(s.collections, func(c domain.Collection) domain.Collection {
			c.Template = c.Template.Clone()
			return c
		}),
		items: cloneMap(s.items, func(it domain.Item) domain.Item {
			it.Metadata = it.Metadata.Clone()
			return it
		}),
		bundles:    cloneMap(s.bundles, nil),
		bitstreams: cloneMap(s.bitstreams, nil),
		bundleBits: cloneMap(s.bundleBits, func(ids []uuid.UUID) []uuid.UUID {
			return append([]uuid.UUID(nil), ids...)
		}),
		formats: cloneMap(s.formats, func(f domain.BitstreamFormat) domain.BitstreamFormat {
			f.Extensions = append([]string(nil), f.Extensions...)
			return f
		}),
		handles:   cloneMap(s.handles, nil),
		workflow:  cloneMap(s.workflow, nil),
		formatSeq: s.formatSeq,
	}
	c.members = make(map[uuid.UUID]map[uuid.UUID]bool, len(s.members))
	for g, m := range s.members {
		c.members[g] = cloneMap(m, nil)
	}
	return c
}

// Memory is an in-process content repository with snapshot isolation
// a unit reads its own copy and records its writes; commit replays them over
// whatever other units committed meanwhile and fails only when a write no longer applies
type Memory struct {
	mu      sync.Mutex
	st      *state
	version uint64
	// handleSeq is shared by all units, like a postgres sequence it never rolls back
	handleSeq int64
}

// NewMemory returns an empty repository
func NewMemory() *Memory { return &Memory{st: newState()} }

// Begin snapshots the repository
func (m *Memory) Begin(context.Context) (domain.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memUnit{m: m, st: m.st.clone(), base: m.version}, nil
}

// Ping always succeeds
func (m *Memory) Ping(context.Context) error { return nil }

type memUnit struct {
	m    *Memory
	st   *state
	base uint64
	ops  []func(*state) error
	done bool
}

// apply runs a write against the unit's copy and keeps it for replay at commit
func (u *memUnit) apply(op func(*state) error) error {
	if err := op(u.st); err != nil {
		return err
	}
	u.ops = append(u.ops, op)
	return nil
}

func (u *memUnit) Commit(context.Context) error {
	if u.done {
		return perr.Conflictf("unit already finished")
	}
	u.m.mu.Lock()
	defer u.m.mu.Unlock()
	u.done = true
	if len(u.ops) == 0 {
		return nil
	}
	st := u.st
	if u.m.version != u.base {
		st = u.m.st.clone()
		for _, op := range u.ops {
			if err := op(st); err != nil {
				return perr.Wrap(err, perr.ErrorCodeConflict, "repository changed since the unit began")
			}
		}
	}
	u.m.st = st
	u.m.version++
	return nil
}

func (u *memUnit) Rollback(context.Context) error {
	u.done = true
	return nil
}

func notFound(kind string, id any) error { return perr.NotFoundf("%s %v not found", kind, id) }

// Reader

func (u *memUnit) EPerson(_ context.Context, id uuid.UUID) (*domain.EPerson, error) {
	e, ok := u.st.epeople[id]
	if !ok {
		return nil, notFound("eperson", id)
	}
	return &e, nil
}

func (u *memUnit) EPersonByEmail(_ context.Context, email string) (*domain.EPerson, error) {
	for _, e := range u.st.epeople {
		if strings.EqualFold(e.Email, email) {
			return &e, nil
		}
	}
	return nil, notFound("eperson", email)
}

func (u *memUnit) EPersonByNetID(_ context.Context, netid string) (*domain.EPerson, error) {
	for _, e := range u.st.epeople {
		if e.NetID != "" && e.NetID == netid {
			return &e, nil
		}
	}
	return nil, notFound("eperson", netid)
}

func (u *memUnit) GroupByName(_ context.Context, name string) (*domain.Group, error) {
	for _, g := range u.st.groups {
		if g.Name == name {
			return &g, nil
		}
	}
	return nil, notFound("group", name)
}

func (u *memUnit) ResolveHandle(_ context.Context, handle string) (domain.Ref, error) {
	ref, ok := u.st.handles[handle]
	if !ok {
		return domain.Ref{}, notFound("handle", handle)
	}
	return ref, nil
}

func (u *memUnit) Community(_ context.Context, id uuid.UUID) (*domain.Community, error) {
	c, ok := u.st.communities[id]
	if !ok {
		return nil, notFound("community", id)
	}
	return &c, nil
}

func (u *memUnit) Collection(_ context.Context, id uuid.UUID) (*domain.Collection, error) {
	c, ok := u.st.collections[id]
	if !ok {
		return nil, notFound("collection", id)
	}
	c.Template = c.Template.Clone()
	return &c, nil
}

func (u *memUnit) Item(_ context.Context, id uuid.UUID) (*domain.Item, error) {
	it, ok := u.st.items[id]
	if !ok {
		return nil, notFound("item", id)
	}
	it.Metadata = it.Metadata.Clone()
	return &it, nil
}

func (u *memUnit) Bundle(_ context.Context, id uuid.UUID) (*domain.Bundle, error) {
	b, ok := u.st.bundles[id]
	if !ok {
		return nil, notFound("bundle", id)
	}
	return &b, nil
}

func (u *memUnit) Bitstream(_ context.Context, id uuid.UUID) (*domain.Bitstream, error) {
	b, ok := u.st.bitstreams[id]
	if !ok {
		return nil, notFound("bitstream", id)
	}
	return &b, nil
}

func (u *memUnit) Communities(_ context.Context, parent uuid.UUID) ([]domain.Community, error) {
	var out []domain.Community
	for _, c := range u.st.communities {
		if c.ParentID == parent {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (u *memUnit) Collections(_ context.Context, community uuid.UUID) ([]domain.Collection, error) {
	var out []domain.Collection
	for _, c := range u.st.collections {
		if community == uuid.Nil || c.CommunityID == community {
			c.Template = c.Template.Clone()
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (u *memUnit) ArchivedItems(_ context.Context, collection uuid.UUID) ([]domain.Item, error) {
	var out []domain.Item
	for _, it := range u.st.items {
		if it.CollectionID == collection && it.InArchive && !it.Withdrawn {
			it.Metadata = it.Metadata.Clone()
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

func (u *memUnit) Bundles(_ context.Context, item uuid.UUID) ([]domain.Bundle, error) {
	var out []domain.Bundle
	for _, b := range u.st.bundles {
		if b.ItemID == item {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (u *memUnit) BundleBitstreams(_ context.Context, bundle uuid.UUID) ([]domain.Bitstream, error) {
	ids := u.st.bundleBits[bundle]
	out := make([]domain.Bitstream, 0, len(ids))
	for _, id := range ids {
		out = append(out, u.st.bitstreams[id])
	}
	return out, nil
}

func (u *memUnit) BitstreamBundles(_ context.Context, bitstream uuid.UUID) ([]domain.Bundle, error) {
	var out []domain.Bundle
	for bid, ids := range u.st.bundleBits {
		for _, id := range ids {
			if id == bitstream {
				out = append(out, u.st.bundles[bid])
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (u *memUnit) Formats(context.Context) ([]domain.BitstreamFormat, error) {
	out := make([]domain.BitstreamFormat, 0, len(u.st.formats))
	for _, f := range u.st.formats {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (u *memUnit) Format(_ context.Context, id int) (*domain.BitstreamFormat, error) {
	f, ok := u.st.formats[id]
	if !ok {
		return nil, notFound("format", id)
	}
	return &f, nil
}

func (u *memUnit) FormatByMIME(ctx context.Context, mime string) (*domain.BitstreamFormat, error) {
	fs, _ := u.Formats(ctx)
	for _, f := range fs {
		if strings.EqualFold(f.MIMEType, mime) {
			return &f, nil
		}
	}
	return nil, notFound("format", mime)
}

func (u *memUnit) Allowed(_ context.Context, eperson uuid.UUID, action domain.Action, obj domain.Ref) (bool, error) {
	for _, p := range u.st.policies {
		if p.Object != obj || p.Action != action {
			continue
		}
		if p.EPerson != uuid.Nil && p.EPerson == eperson {
			return true, nil
		}
		if p.Group != uuid.Nil && u.st.members[p.Group][eperson] {
			return true, nil
		}
	}
	return false, nil
}

func (u *memUnit) IsMember(ctx context.Context, eperson uuid.UUID, group string) (bool, error) {
	g, err := u.GroupByName(ctx, group)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.st.members[g.ID][eperson], nil
}

// Writer
// IDs are assigned before apply so a replayed write lands on the same objects

func (u *memUnit) CreateEPerson(_ context.Context, e *domain.EPerson) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	v := *e
	return u.apply(func(st *state) error {
		for _, o := range st.epeople {
			if strings.EqualFold(o.Email, v.Email) {
				return perr.DuplicateKeyf("eperson %s exists", v.Email)
			}
		}
		st.epeople[v.ID] = v
		return nil
	})
}

func (u *memUnit) CreateGroup(_ context.Context, g *domain.Group) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	v := *g
	return u.apply(func(st *state) error {
		for _, o := range st.groups {
			if o.Name == v.Name {
				return perr.DuplicateKeyf("group %s exists", v.Name)
			}
		}
		st.groups[v.ID] = v
		return nil
	})
}

func (u *memUnit) AddGroupMember(_ context.Context, group, eperson uuid.UUID) error {
	return u.apply(func(st *state) error {
		if _, ok := st.groups[group]; !ok {
			return notFound("group", group)
		}
		if st.members[group] == nil {
			st.members[group] = map[uuid.UUID]bool{}
		}
		st.members[group][eperson] = true
		return nil
	})
}

func (u *memUnit) Grant(_ context.Context, p domain.Policy) error {
	return u.apply(func(st *state) error {
		st.policies = append(st.policies, p)
		return nil
	})
}

func (u *memUnit) CreateCommunity(_ context.Context, c *domain.Community) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Handle = ""
	v := *c
	return u.apply(func(st *state) error {
		st.communities[v.ID] = v
		return nil
	})
}

func (u *memUnit) CreateCollection(_ context.Context, c *domain.Collection) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Handle = ""
	v := *c
	v.Template = c.Template.Clone()
	return u.apply(func(st *state) error {
		if _, ok := st.communities[v.CommunityID]; !ok {
			return notFound("community", v.CommunityID)
		}
		st.collections[v.ID] = v
		return nil
	})
}

func (u *memUnit) CreateItem(_ context.Context, it *domain.Item) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	it.Handle = ""
	v := *it
	v.Metadata = it.Metadata.Clone()
	return u.apply(func(st *state) error {
		if _, ok := st.collections[v.CollectionID]; !ok {
			return notFound("collection", v.CollectionID)
		}
		st.items[v.ID] = v
		return nil
	})
}

func (u *memUnit) UpdateItem(_ context.Context, it *domain.Item) error {
	v := *it
	v.Metadata = it.Metadata.Clone()
	return u.apply(func(st *state) error {
		cur, ok := st.items[v.ID]
		if !ok {
			return notFound("item", v.ID)
		}
		next := v
		next.Handle = cur.Handle
		st.items[v.ID] = next
		return nil
	})
}

func (u *memUnit) CreateBundle(_ context.Context, b *domain.Bundle) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	v := *b
	return u.apply(func(st *state) error {
		if _, ok := st.items[v.ItemID]; !ok {
			return notFound("item", v.ItemID)
		}
		st.bundles[v.ID] = v
		return nil
	})
}

func (u *memUnit) AddBitstream(_ context.Context, bundle uuid.UUID, bs *domain.Bitstream) error {
	if bs.ID == uuid.Nil {
		bs.ID = uuid.New()
	}
	v := *bs
	err := u.apply(func(st *state) error {
		b, ok := st.bundles[bundle]
		if !ok {
			return notFound("bundle", bundle)
		}
		seq := 0
		for bid, ids := range st.bundleBits {
			if st.bundles[bid].ItemID != b.ItemID {
				continue
			}
			for _, id := range ids {
				if s := st.bitstreams[id].SequenceID; s > seq {
					seq = s
				}
			}
		}
		v.SequenceID = seq + 1
		st.bitstreams[v.ID] = v
		st.bundleBits[bundle] = append(st.bundleBits[bundle], v.ID)
		return nil
	})
	bs.SequenceID = v.SequenceID
	return err
}

func (u *memUnit) RemoveBitstream(_ context.Context, bundle, bitstream uuid.UUID) error {
	return u.apply(func(st *state) error {
		ids := st.bundleBits[bundle]
		for i, id := range ids {
			if id != bitstream {
				continue
			}
			st.bundleBits[bundle] = append(ids[:i:i], ids[i+1:]...)
			for _, rest := range st.bundleBits {
				for _, other := range rest {
					if other == bitstream {
						return nil
					}
				}
			}
			delete(st.bitstreams, bitstream)
			return nil
		}
		return notFound("bitstream", bitstream)
	})
}

func (u *memUnit) CreateFormat(_ context.Context, f *domain.BitstreamFormat) error {
	v := *f
	v.Extensions = append([]string(nil), f.Extensions...)
	err := u.apply(func(st *state) error {
		if v.ID == 0 {
			st.formatSeq++
			v.ID = st.formatSeq
		} else if v.ID > st.formatSeq {
			st.formatSeq = v.ID
		}
		st.formats[v.ID] = v
		return nil
	})
	f.ID = v.ID
	return err
}

func (u *memUnit) NextHandleSuffix(context.Context) (int64, error) {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()
	u.m.handleSeq++
	return u.m.handleSeq, nil
}

func (u *memUnit) BindHandle(_ context.Context, handle string, ref domain.Ref) error {
	return u.apply(func(st *state) error {
		if _, ok := st.handles[handle]; ok {
			return perr.DuplicateKeyf("handle %s already bound", handle)
		}
		switch ref.Type {
		case domain.TypeCommunity:
			c, ok := st.communities[ref.ID]
			if !ok {
				return notFound("community", ref.ID)
			}
			c.Handle = handle
			st.communities[ref.ID] = c
		case domain.TypeCollection:
			c, ok := st.collections[ref.ID]
			if !ok {
				return notFound("collection", ref.ID)
			}
			c.Handle = handle
			st.collections[ref.ID] = c
		case domain.TypeItem:
			it, ok := st.items[ref.ID]
			if !ok {
				return notFound("item", ref.ID)
			}
			it.Handle = handle
			st.items[ref.ID] = it
		default:
			return perr.InvalidArgf("handles cannot be bound to a %s", ref.Type)
		}
		st.handles[handle] = ref
		return nil
	})
}

func (u *memUnit) StartWorkflow(_ context.Context, item, collection uuid.UUID) error {
	return u.apply(func(st *state) error {
		if _, ok := st.items[item]; !ok {
			return notFound("item", item)
		}
		st.workflow[item] = collection
		return nil
	})
}

var _ domain.Store = (*Memory)(nil)
