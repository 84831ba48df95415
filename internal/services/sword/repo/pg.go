package repo

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/google/uuid"

	"sword/internal/modkit/repokit"
	perr "sword/internal/platform/errors"
	"sword/internal/platform/store"
	pstrings "sword/internal/platform/strings"
	"sword/internal/services/sword/domain"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL applied by Migrate
func Schema() string { return schema }

// Migrate applies the schema; every statement is idempotent
func Migrate(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, schema)
	return perr.FromPostgres(err, "apply schema")
}

// Bootstrap applies the schema and seeds defaults in one transaction
func Bootstrap(ctx context.Context, tx repokit.TxRunner) error {
	return repokit.WithTx(ctx, tx, func(q repokit.Queryer) error {
		if err := Migrate(ctx, q); err != nil {
			return err
		}
		return Seed(ctx, repokit.MustBind(NewPGBinder(), q))
	})
}

// Content is the full read and write surface over one Queryer
type Content interface {
	domain.Reader
	domain.Writer
}

// NewPGBinder returns a binder for callers that run their own transactions
func NewPGBinder() repokit.Binder[Content] {
	return repokit.BindFunc[Content](func(q repokit.Queryer) Content { return &queries{q: q} })
}

// PG is the Postgres content repository
type PG struct {
	db store.Beginner
	p  store.Pinger
}

// NewPG wraps a store seam that can begin transactions
func NewPG(db store.TxRunner) (*PG, error) {
	b, ok := db.(store.Beginner)
	if !ok {
		return nil, errors.New("repo: postgres seam cannot begin transactions")
	}
	p, _ := db.(store.Pinger)
	return &PG{db: b, p: p}, nil
}

// Begin opens a unit of work on a new transaction
func (r *PG) Begin(ctx context.Context) (domain.Unit, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, perr.FromPostgres(err, "begin")
	}
	return &pgUnit{queries: queries{q: tx}, tx: tx}, nil
}

// Ping checks the database
func (r *PG) Ping(ctx context.Context) error {
	if r.p == nil {
		return nil
	}
	return r.p.Ping(ctx)
}

type pgUnit struct {
	queries
	tx store.Tx
}

func (u *pgUnit) Commit(ctx context.Context) error {
	return perr.FromPostgres(u.tx.Commit(ctx), "commit")
}

func (u *pgUnit) Rollback(ctx context.Context) error {
	return u.tx.Rollback(ctx)
}

type queries struct{ q repokit.Queryer }

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func wrapNotFound(err error, kind string, id any) error {
	if err == nil {
		return nil
	}
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return notFound(kind, id)
	}
	return perr.FromPostgres(err, "load "+kind)
}

// EPeople

const epersonCols = `id, email, COALESCE(netid, ''), first_name, last_name, password_hash, can_log_in`

func scanEPerson(r store.Row) (domain.EPerson, error) {
	var e domain.EPerson
	err := r.Scan(&e.ID, &e.Email, &e.NetID, &e.FirstName, &e.LastName, &e.PasswordHash, &e.CanLogIn)
	return e, err
}

func (r *queries) eperson(ctx context.Context, where string, arg any) (*domain.EPerson, error) {
	e, err := store.One(ctx, r.q, scanEPerson, `SELECT `+epersonCols+` FROM eperson WHERE `+where, arg)
	if err != nil {
		return nil, wrapNotFound(err, "eperson", arg)
	}
	return &e, nil
}

func (r *queries) EPerson(ctx context.Context, id uuid.UUID) (*domain.EPerson, error) {
	return r.eperson(ctx, `id = $1`, id)
}

func (r *queries) EPersonByEmail(ctx context.Context, email string) (*domain.EPerson, error) {
	return r.eperson(ctx, `lower(email) = lower($1)`, email)
}

func (r *queries) EPersonByNetID(ctx context.Context, netid string) (*domain.EPerson, error) {
	return r.eperson(ctx, `netid = $1`, netid)
}

func (r *queries) GroupByName(ctx context.Context, name string) (*domain.Group, error) {
	g, err := store.One(ctx, r.q, func(row store.Row) (domain.Group, error) {
		var g domain.Group
		return g, row.Scan(&g.ID, &g.Name)
	}, `SELECT id, name FROM epgroup WHERE name = $1`, name)
	if err != nil {
		return nil, wrapNotFound(err, "group", name)
	}
	return &g, nil
}

// Containers

func (r *queries) ResolveHandle(ctx context.Context, handle string) (domain.Ref, error) {
	ref, err := store.One(ctx, r.q, func(row store.Row) (domain.Ref, error) {
		var ref domain.Ref
		var t int16
		err := row.Scan(&t, &ref.ID)
		ref.Type = domain.ObjectType(t)
		return ref, err
	}, `SELECT resource_type, resource_id FROM handle WHERE handle = $1`, handle)
	if err != nil {
		return domain.Ref{}, wrapNotFound(err, "handle", handle)
	}
	return ref, nil
}

const communityCols = `c.id, COALESCE(h.handle, ''), c.name, c.short_description,
	COALESCE(c.parent_id, '00000000-0000-0000-0000-000000000000'::uuid)`

func scanCommunity(r store.Row) (domain.Community, error) {
	var c domain.Community
	err := r.Scan(&c.ID, &c.Handle, &c.Name, &c.ShortDescription, &c.ParentID)
	return c, err
}

func (r *queries) Community(ctx context.Context, id uuid.UUID) (*domain.Community, error) {
	c, err := store.One(ctx, r.q, scanCommunity, `
		SELECT `+communityCols+`
		FROM community c LEFT JOIN handle h ON h.resource_id = c.id
		WHERE c.id = $1`, id)
	if err != nil {
		return nil, wrapNotFound(err, "community", id)
	}
	return &c, nil
}

func (r *queries) Communities(ctx context.Context, parent uuid.UUID) ([]domain.Community, error) {
	out, err := store.Many(ctx, r.q, scanCommunity, `
		SELECT `+communityCols+`
		FROM community c LEFT JOIN handle h ON h.resource_id = c.id
		WHERE c.parent_id IS NOT DISTINCT FROM $1
		ORDER BY c.name`, nullUUID(parent))
	return out, perr.FromPostgres(err, "list communities")
}

const collectionCols = `c.id, COALESCE(h.handle, ''), c.name, c.short_description, c.license, c.community_id, c.workflow_enabled`

func scanCollection(r store.Row) (domain.Collection, error) {
	var c domain.Collection
	err := r.Scan(&c.ID, &c.Handle, &c.Name, &c.ShortDescription, &c.License, &c.CommunityID, &c.WorkflowEnabled)
	return c, err
}

func (r *queries) Collection(ctx context.Context, id uuid.UUID) (*domain.Collection, error) {
	c, err := store.One(ctx, r.q, scanCollection, `
		SELECT `+collectionCols+`
		FROM collection c LEFT JOIN handle h ON h.resource_id = c.id
		WHERE c.id = $1`, id)
	if err != nil {
		return nil, wrapNotFound(err, "collection", id)
	}
	if c.Template, err = r.values(ctx, `SELECT schema, element, qualifier, lang, value, place
		FROM collection_template_value WHERE collection_id = $1 ORDER BY id`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *queries) Collections(ctx context.Context, community uuid.UUID) ([]domain.Collection, error) {
	out, err := store.Many(ctx, r.q, scanCollection, `
		SELECT `+collectionCols+`
		FROM collection c LEFT JOIN handle h ON h.resource_id = c.id
		WHERE $1::uuid IS NULL OR c.community_id = $1
		ORDER BY c.name`, nullUUID(community))
	return out, perr.FromPostgres(err, "list collections")
}

// Items

const itemCols = `i.id, COALESCE(h.handle, ''), i.collection_id,
	COALESCE(i.submitter_id, '00000000-0000-0000-0000-000000000000'::uuid),
	i.in_archive, i.withdrawn, i.last_modified`

func scanItem(r store.Row) (domain.Item, error) {
	var it domain.Item
	err := r.Scan(&it.ID, &it.Handle, &it.CollectionID, &it.SubmitterID, &it.InArchive, &it.Withdrawn, &it.LastModified)
	return it, err
}

func (r *queries) metadata(ctx context.Context, id uuid.UUID) (domain.Metadata, error) {
	return r.values(ctx, `SELECT schema, element, qualifier, lang, value, place
		FROM metadata_value WHERE resource_id = $1 ORDER BY id`, id)
}

// values scans metadata rows selected by sql
func (r *queries) values(ctx context.Context, sql string, id uuid.UUID) (domain.Metadata, error) {
	vals, err := store.Many(ctx, r.q, func(row store.Row) (domain.MetadataValue, error) {
		var v domain.MetadataValue
		err := row.Scan(&v.Field.Schema, &v.Field.Element, &v.Field.Qualifier, &v.Language, &v.Value, &v.Place)
		return v, err
	}, sql, id)
	if err != nil {
		return nil, perr.FromPostgres(err, "load metadata")
	}
	return domain.Metadata(vals), nil
}

func (r *queries) Item(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	it, err := store.One(ctx, r.q, scanItem, `
		SELECT `+itemCols+`
		FROM item i LEFT JOIN handle h ON h.resource_id = i.id
		WHERE i.id = $1`, id)
	if err != nil {
		return nil, wrapNotFound(err, "item", id)
	}
	if it.Metadata, err = r.metadata(ctx, id); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *queries) ArchivedItems(ctx context.Context, collection uuid.UUID) ([]domain.Item, error) {
	items, err := store.Many(ctx, r.q, scanItem, `
		SELECT `+itemCols+`
		FROM item i LEFT JOIN handle h ON h.resource_id = i.id
		WHERE i.collection_id = $1 AND i.in_archive AND NOT i.withdrawn
		ORDER BY h.handle`, collection)
	if err != nil {
		return nil, perr.FromPostgres(err, "list items")
	}
	for i := range items {
		if items[i].Metadata, err = r.metadata(ctx, items[i].ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Bundles and bitstreams

func scanBundle(r store.Row) (domain.Bundle, error) {
	var b domain.Bundle
	err := r.Scan(&b.ID, &b.ItemID, &b.Name)
	return b, err
}

func (r *queries) Bundle(ctx context.Context, id uuid.UUID) (*domain.Bundle, error) {
	b, err := store.One(ctx, r.q, scanBundle, `SELECT id, item_id, name FROM bundle WHERE id = $1`, id)
	if err != nil {
		return nil, wrapNotFound(err, "bundle", id)
	}
	return &b, nil
}

func (r *queries) Bundles(ctx context.Context, item uuid.UUID) ([]domain.Bundle, error) {
	out, err := store.Many(ctx, r.q, scanBundle, `SELECT id, item_id, name FROM bundle WHERE item_id = $1 ORDER BY name`, item)
	return out, perr.FromPostgres(err, "list bundles")
}

const bitstreamCols = `b.id, b.sequence_id, b.name, b.source, b.description, COALESCE(b.format_id, 0),
	b.size_bytes, b.checksum, b.checksum_algorithm, b.store_key`

func scanBitstream(r store.Row) (domain.Bitstream, error) {
	var b domain.Bitstream
	err := r.Scan(&b.ID, &b.SequenceID, &b.Name, &b.Source, &b.Description, &b.FormatID,
		&b.Size, &b.Checksum, &b.ChecksumAlgorithm, &b.StoreKey)
	return b, err
}

func (r *queries) Bitstream(ctx context.Context, id uuid.UUID) (*domain.Bitstream, error) {
	b, err := store.One(ctx, r.q, scanBitstream, `SELECT `+bitstreamCols+` FROM bitstream b WHERE b.id = $1`, id)
	if err != nil {
		return nil, wrapNotFound(err, "bitstream", id)
	}
	return &b, nil
}

func (r *queries) BundleBitstreams(ctx context.Context, bundle uuid.UUID) ([]domain.Bitstream, error) {
	out, err := store.Many(ctx, r.q, scanBitstream, `
		SELECT `+bitstreamCols+`
		FROM bitstream b JOIN bundle_bitstream bb ON bb.bitstream_id = b.id
		WHERE bb.bundle_id = $1
		ORDER BY bb.position`, bundle)
	return out, perr.FromPostgres(err, "list bitstreams")
}

func (r *queries) BitstreamBundles(ctx context.Context, bitstream uuid.UUID) ([]domain.Bundle, error) {
	out, err := store.Many(ctx, r.q, scanBundle, `
		SELECT bu.id, bu.item_id, bu.name
		FROM bundle bu JOIN bundle_bitstream bb ON bb.bundle_id = bu.id
		WHERE bb.bitstream_id = $1
		ORDER BY bu.name`, bitstream)
	return out, perr.FromPostgres(err, "list owning bundles")
}

// Formats

func scanFormat(r store.Row) (domain.BitstreamFormat, error) {
	var f domain.BitstreamFormat
	err := r.Scan(&f.ID, &f.MIMEType, &f.ShortDescription, &f.Internal, &f.Extensions)
	return f, err
}

const formatCols = `id, mimetype, short_description, internal, extensions`

func (r *queries) Formats(ctx context.Context) ([]domain.BitstreamFormat, error) {
	out, err := store.Many(ctx, r.q, scanFormat, `SELECT `+formatCols+` FROM bitstream_format ORDER BY id`)
	return out, perr.FromPostgres(err, "list formats")
}

func (r *queries) Format(ctx context.Context, id int) (*domain.BitstreamFormat, error) {
	f, err := store.One(ctx, r.q, scanFormat, `SELECT `+formatCols+` FROM bitstream_format WHERE id = $1`, id)
	if err != nil {
		return nil, wrapNotFound(err, "format", id)
	}
	return &f, nil
}

func (r *queries) FormatByMIME(ctx context.Context, mime string) (*domain.BitstreamFormat, error) {
	f, err := store.One(ctx, r.q, scanFormat, `
		SELECT `+formatCols+` FROM bitstream_format
		WHERE lower(mimetype) = lower($1) ORDER BY id LIMIT 1`, strings.TrimSpace(mime))
	if err != nil {
		return nil, wrapNotFound(err, "format", mime)
	}
	return &f, nil
}

// Authorization

func (r *queries) Allowed(ctx context.Context, eperson uuid.UUID, action domain.Action, obj domain.Ref) (bool, error) {
	ok, err := store.Scalar[bool](ctx, r.q, `
		SELECT EXISTS (
			SELECT 1 FROM resource_policy p
			WHERE p.resource_id = $1 AND p.resource_type = $2 AND p.action = $3
			  AND (p.eperson_id = $4
			       OR p.group_id IN (SELECT group_id FROM epgroup_member WHERE eperson_id = $4))
		)`, obj.ID, int16(obj.Type), int16(action), eperson)
	return ok, perr.FromPostgres(err, "check policy")
}

func (r *queries) IsMember(ctx context.Context, eperson uuid.UUID, group string) (bool, error) {
	ok, err := store.Scalar[bool](ctx, r.q, `
		SELECT EXISTS (
			SELECT 1 FROM epgroup_member m JOIN epgroup g ON g.id = m.group_id
			WHERE g.name = $1 AND m.eperson_id = $2
		)`, group, eperson)
	return ok, perr.FromPostgres(err, "check membership")
}

// Writes

func (r *queries) CreateEPerson(ctx context.Context, e *domain.EPerson) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO eperson (id, email, netid, first_name, last_name, password_hash, can_log_in)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Email, pstrings.NullIfBlank(e.NetID), e.FirstName, e.LastName, e.PasswordHash, e.CanLogIn)
	return perr.FromPostgresWithField(err, "create eperson")
}

func (r *queries) CreateGroup(ctx context.Context, g *domain.Group) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO epgroup (id, name) VALUES ($1, $2)`, g.ID, g.Name)
	return perr.FromPostgres(err, "create group")
}

func (r *queries) AddGroupMember(ctx context.Context, group, eperson uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO epgroup_member (group_id, eperson_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, group, eperson)
	return perr.FromPostgres(err, "add group member")
}

func (r *queries) Grant(ctx context.Context, p domain.Policy) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO resource_policy (resource_type, resource_id, action, eperson_id, group_id)
		VALUES ($1, $2, $3, $4, $5)`,
		int16(p.Object.Type), p.Object.ID, int16(p.Action), nullUUID(p.EPerson), nullUUID(p.Group))
	return perr.FromPostgres(err, "grant policy")
}

func (r *queries) CreateCommunity(ctx context.Context, c *domain.Community) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Handle = ""
	_, err := r.q.Exec(ctx, `
		INSERT INTO community (id, parent_id, name, short_description) VALUES ($1, $2, $3, $4)`,
		c.ID, nullUUID(c.ParentID), c.Name, c.ShortDescription)
	return perr.FromPostgres(err, "create community")
}

func (r *queries) CreateCollection(ctx context.Context, c *domain.Collection) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Handle = ""
	_, err := r.q.Exec(ctx, `
		INSERT INTO collection (id, community_id, name, short_description, license, workflow_enabled)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.CommunityID, c.Name, c.ShortDescription, c.License, c.WorkflowEnabled)
	if err != nil {
		return perr.FromPostgres(err, "create collection")
	}
	for _, v := range c.Template {
		_, err := r.q.Exec(ctx, `
			INSERT INTO collection_template_value (collection_id, schema, element, qualifier, lang, value, place)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, v.Field.Schema, v.Field.Element, v.Field.Qualifier, v.Language, v.Value, v.Place)
		if err != nil {
			return perr.FromPostgres(err, "write collection template")
		}
	}
	return nil
}

func (r *queries) CreateItem(ctx context.Context, it *domain.Item) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	it.Handle = ""
	_, err := r.q.Exec(ctx, `
		INSERT INTO item (id, collection_id, submitter_id, in_archive, withdrawn, last_modified)
		VALUES ($1, $2, $3, $4, $5, now())`,
		it.ID, it.CollectionID, nullUUID(it.SubmitterID), it.InArchive, it.Withdrawn)
	if err != nil {
		return perr.FromPostgres(err, "create item")
	}
	return r.writeMetadata(ctx, it)
}

func (r *queries) UpdateItem(ctx context.Context, it *domain.Item) error {
	err := store.ExecOne(ctx, r.q, `
		UPDATE item SET collection_id = $2, submitter_id = $3, in_archive = $4, withdrawn = $5, last_modified = now()
		WHERE id = $1`,
		it.ID, it.CollectionID, nullUUID(it.SubmitterID), it.InArchive, it.Withdrawn)
	if err != nil {
		return perr.FromPostgres(err, "update item")
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM metadata_value WHERE resource_id = $1`, it.ID); err != nil {
		return perr.FromPostgres(err, "clear metadata")
	}
	return r.writeMetadata(ctx, it)
}

func (r *queries) writeMetadata(ctx context.Context, it *domain.Item) error {
	for _, v := range it.Metadata {
		_, err := r.q.Exec(ctx, `
			INSERT INTO metadata_value (resource_id, schema, element, qualifier, lang, value, place)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, v.Field.Schema, v.Field.Element, v.Field.Qualifier, v.Language, v.Value, v.Place)
		if err != nil {
			return perr.FromPostgres(err, "write metadata")
		}
	}
	return nil
}

func (r *queries) CreateBundle(ctx context.Context, b *domain.Bundle) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `INSERT INTO bundle (id, item_id, name) VALUES ($1, $2, $3)`, b.ID, b.ItemID, b.Name)
	return perr.FromPostgres(err, "create bundle")
}

func (r *queries) AddBitstream(ctx context.Context, bundle uuid.UUID, bs *domain.Bitstream) error {
	if bs.ID == uuid.Nil {
		bs.ID = uuid.New()
	}
	seq, err := store.Scalar[int](ctx, r.q, `
		SELECT COALESCE(MAX(b.sequence_id), 0)
		FROM bitstream b
		JOIN bundle_bitstream bb ON bb.bitstream_id = b.id
		JOIN bundle bu ON bu.id = bb.bundle_id
		WHERE bu.item_id = (SELECT item_id FROM bundle WHERE id = $1)`, bundle)
	if err != nil {
		return perr.FromPostgres(err, "next sequence id")
	}
	bs.SequenceID = seq + 1
	var format any
	if bs.FormatID != 0 {
		format = bs.FormatID
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO bitstream (id, sequence_id, name, source, description, format_id, size_bytes,
			checksum, checksum_algorithm, store_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		bs.ID, bs.SequenceID, bs.Name, bs.Source, bs.Description, format, bs.Size,
		bs.Checksum, bs.ChecksumAlgorithm, bs.StoreKey)
	if err != nil {
		return perr.FromPostgres(err, "create bitstream")
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO bundle_bitstream (bundle_id, bitstream_id, position)
		SELECT $1, $2, COALESCE(MAX(position), -1) + 1 FROM bundle_bitstream WHERE bundle_id = $1`,
		bundle, bs.ID)
	return perr.FromPostgres(err, "link bitstream")
}

func (r *queries) RemoveBitstream(ctx context.Context, bundle, bitstream uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM bundle_bitstream WHERE bundle_id = $1 AND bitstream_id = $2`, bundle, bitstream)
	if err != nil {
		return perr.FromPostgres(err, "unlink bitstream")
	}
	if tag.RowsAffected() == 0 {
		return notFound("bitstream", bitstream)
	}
	_, err = r.q.Exec(ctx, `
		DELETE FROM bitstream WHERE id = $1
		AND NOT EXISTS (SELECT 1 FROM bundle_bitstream WHERE bitstream_id = $1)`, bitstream)
	return perr.FromPostgres(err, "delete bitstream")
}

func (r *queries) CreateFormat(ctx context.Context, f *domain.BitstreamFormat) error {
	exts := f.Extensions
	if exts == nil {
		exts = []string{}
	}
	if f.ID != 0 {
		_, err := r.q.Exec(ctx, `
			INSERT INTO bitstream_format (id, mimetype, short_description, internal, extensions)
			VALUES ($1, $2, $3, $4, $5)`, f.ID, f.MIMEType, f.ShortDescription, f.Internal, exts)
		return perr.FromPostgres(err, "create format")
	}
	id, err := store.Scalar[int](ctx, r.q, `
		INSERT INTO bitstream_format (mimetype, short_description, internal, extensions)
		VALUES ($1, $2, $3, $4) RETURNING id`, f.MIMEType, f.ShortDescription, f.Internal, exts)
	if err != nil {
		return perr.FromPostgres(err, "create format")
	}
	f.ID = id
	return nil
}

func (r *queries) NextHandleSuffix(ctx context.Context) (int64, error) {
	n, err := store.Scalar[int64](ctx, r.q, `SELECT nextval('handle_seq')`)
	return n, perr.FromPostgres(err, "next handle")
}

func (r *queries) BindHandle(ctx context.Context, handle string, ref domain.Ref) error {
	switch ref.Type {
	case domain.TypeCommunity, domain.TypeCollection, domain.TypeItem:
	default:
		return perr.InvalidArgf("handles cannot be bound to a %s", ref.Type)
	}
	_, err := r.q.Exec(ctx, `INSERT INTO handle (handle, resource_type, resource_id) VALUES ($1, $2, $3)`,
		handle, int16(ref.Type), ref.ID)
	return perr.FromPostgres(err, "bind handle")
}

func (r *queries) StartWorkflow(ctx context.Context, item, collection uuid.UUID) error {
	_, err := r.q.Exec(ctx, `INSERT INTO workflow_item (item_id, collection_id) VALUES ($1, $2)`, item, collection)
	return perr.FromPostgres(err, "start workflow")
}

var (
	_ domain.Store = (*PG)(nil)
	_ domain.Unit  = (*pgUnit)(nil)
)
