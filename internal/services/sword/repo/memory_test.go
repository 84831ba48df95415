package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/domain"
)

func begin(t *testing.T, m *Memory) domain.Unit {
	t.Helper()
	u, err := m.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return u
}

func fixture(t *testing.T, m *Memory) (domain.Collection, domain.Item) {
	t.Helper()
	ctx := context.Background()
	u := begin(t, m)
	com := domain.Community{Name: "Research"}
	if err := u.CreateCommunity(ctx, &com); err != nil {
		t.Fatalf("community: %v", err)
	}
	col := domain.Collection{Name: "Theses", CommunityID: com.ID}
	if err := u.CreateCollection(ctx, &col); err != nil {
		t.Fatalf("collection: %v", err)
	}
	it := domain.Item{CollectionID: col.ID}
	it.Metadata.Add("dc.title", "", "A title")
	if err := u.CreateItem(ctx, &it); err != nil {
		t.Fatalf("item: %v", err)
	}
	if err := u.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return col, it
}

func TestMemory_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := begin(t, m)
	com := domain.Community{Name: "Gone"}
	if err := u.CreateCommunity(ctx, &com); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := u.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	_, err := begin(t, m).Community(ctx, com.ID)
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("want not found after rollback, got %v", err)
	}
}

func TestMemory_OverlappingUnitsMerge(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	col, _ := fixture(t, m)

	a, b := begin(t, m), begin(t, m)
	var made []domain.Item
	for _, u := range []domain.Unit{a, b} {
		it := domain.Item{CollectionID: col.ID}
		if err := u.CreateItem(ctx, &it); err != nil {
			t.Fatalf("item: %v", err)
		}
		n, err := u.NextHandleSuffix(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if err := u.BindHandle(ctx, fmt.Sprintf("123456789/%d", n), it.Ref()); err != nil {
			t.Fatalf("bind: %v", err)
		}
		made = append(made, it)
	}
	if err := a.Commit(ctx); err != nil {
		t.Fatalf("commit a: %v", err)
	}
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("commit b: %v", err)
	}

	r := begin(t, m)
	handles := map[string]bool{}
	for _, it := range made {
		got, err := r.Item(ctx, it.ID)
		if err != nil {
			t.Fatalf("item %s lost: %v", it.ID, err)
		}
		handles[got.Handle] = true
	}
	if len(handles) != 2 || handles[""] {
		t.Fatalf("handles = %v", handles)
	}
}

func TestMemory_ConflictingCommitFails(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a, b := begin(t, m), begin(t, m)
	for _, u := range []domain.Unit{a, b} {
		if err := u.CreateEPerson(ctx, &domain.EPerson{Email: "same@example.org"}); err != nil {
			t.Fatalf("eperson: %v", err)
		}
	}
	if err := a.Commit(ctx); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := b.Commit(ctx); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestMemory_ReadOnlyCommitLeavesVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	r := begin(t, m)
	w := begin(t, m)
	if err := w.CreateCommunity(ctx, &domain.Community{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Commit(ctx); err != nil {
		t.Fatalf("read only commit: %v", err)
	}
	if err := w.Commit(ctx); err != nil {
		t.Fatalf("writer commit: %v", err)
	}
}

func TestMemory_SnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, it := fixture(t, m)

	u := begin(t, m)
	got, err := u.Item(ctx, it.ID)
	if err != nil {
		t.Fatalf("item: %v", err)
	}
	got.Metadata.Set("dc.title", "", "changed")

	again, _ := u.Item(ctx, it.ID)
	if v := again.Metadata.First("dc.title"); v != "A title" {
		t.Fatalf("reader mutation leaked into unit: %q", v)
	}
}

func TestMemory_BitstreamSequencePerItem(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, it := fixture(t, m)
	u := begin(t, m)

	orig := domain.Bundle{ItemID: it.ID, Name: domain.BundleOriginal}
	lic := domain.Bundle{ItemID: it.ID, Name: domain.BundleLicense}
	for _, b := range []*domain.Bundle{&orig, &lic} {
		if err := u.CreateBundle(ctx, b); err != nil {
			t.Fatalf("bundle: %v", err)
		}
	}
	one := domain.Bitstream{Name: "a.pdf", StoreKey: "k1"}
	two := domain.Bitstream{Name: "license.txt", StoreKey: "k2"}
	three := domain.Bitstream{Name: "b.pdf", StoreKey: "k3"}
	if err := u.AddBitstream(ctx, orig.ID, &one); err != nil {
		t.Fatal(err)
	}
	if err := u.AddBitstream(ctx, lic.ID, &two); err != nil {
		t.Fatal(err)
	}
	if err := u.AddBitstream(ctx, orig.ID, &three); err != nil {
		t.Fatal(err)
	}
	if one.SequenceID != 1 || two.SequenceID != 2 || three.SequenceID != 3 {
		t.Fatalf("sequence ids = %d %d %d", one.SequenceID, two.SequenceID, three.SequenceID)
	}
	bits, _ := u.BundleBitstreams(ctx, orig.ID)
	if len(bits) != 2 || bits[0].ID != one.ID || bits[1].ID != three.ID {
		t.Fatalf("bundle order = %+v", bits)
	}
	owners, _ := u.BitstreamBundles(ctx, two.ID)
	if len(owners) != 1 || owners[0].Name != domain.BundleLicense {
		t.Fatalf("owners = %+v", owners)
	}
}

func TestMemory_RemoveBitstreamDeletesOrphans(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, it := fixture(t, m)
	u := begin(t, m)
	b := domain.Bundle{ItemID: it.ID, Name: domain.BundleOriginal}
	_ = u.CreateBundle(ctx, &b)
	bs := domain.Bitstream{Name: "x", StoreKey: "k"}
	_ = u.AddBitstream(ctx, b.ID, &bs)

	if err := u.RemoveBitstream(ctx, b.ID, bs.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := u.Bitstream(ctx, bs.ID); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("orphan kept: %v", err)
	}
	if err := u.RemoveBitstream(ctx, b.ID, bs.ID); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("second remove: %v", err)
	}
}

func TestMemory_BindHandle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	col, it := fixture(t, m)
	u := begin(t, m)

	if err := u.BindHandle(ctx, "123456789/1", it.Ref()); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := u.BindHandle(ctx, "123456789/1", col.Ref()); !perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
		t.Fatalf("want duplicate, got %v", err)
	}
	ref, err := u.ResolveHandle(ctx, "123456789/1")
	if err != nil || ref != it.Ref() {
		t.Fatalf("resolve = %+v, %v", ref, err)
	}
	got, _ := u.Item(ctx, it.ID)
	if got.Handle != "123456789/1" {
		t.Fatalf("handle not recorded on item: %q", got.Handle)
	}
	bad := domain.Ref{Type: domain.TypeBitstream, ID: uuid.New()}
	if err := u.BindHandle(ctx, "123456789/2", bad); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid arg, got %v", err)
	}
}

func TestMemory_AllowedThroughGroup(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	col, _ := fixture(t, m)
	u := begin(t, m)

	e := domain.EPerson{Email: "dep@example.org"}
	g := domain.Group{Name: "Submitters"}
	_ = u.CreateEPerson(ctx, &e)
	_ = u.CreateGroup(ctx, &g)
	_ = u.Grant(ctx, domain.Policy{Object: col.Ref(), Action: domain.ActionAdd, Group: g.ID})

	ok, _ := u.Allowed(ctx, e.ID, domain.ActionAdd, col.Ref())
	if ok {
		t.Fatal("allowed before membership")
	}
	_ = u.AddGroupMember(ctx, g.ID, e.ID)
	ok, _ = u.Allowed(ctx, e.ID, domain.ActionAdd, col.Ref())
	if !ok {
		t.Fatal("group member should be allowed")
	}
	ok, _ = u.Allowed(ctx, e.ID, domain.ActionWrite, col.Ref())
	if ok {
		t.Fatal("policy is action scoped")
	}
}

func TestMemory_EPersonEmailCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	u := begin(t, NewMemory())
	e := domain.EPerson{Email: "Someone@Example.org"}
	if err := u.CreateEPerson(ctx, &e); err != nil {
		t.Fatal(err)
	}
	got, err := u.EPersonByEmail(ctx, "someone@example.ORG")
	if err != nil || got.ID != e.ID {
		t.Fatalf("lookup = %+v, %v", got, err)
	}
	dup := domain.EPerson{Email: "someone@example.org"}
	if err := u.CreateEPerson(ctx, &dup); !perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
		t.Fatalf("want duplicate, got %v", err)
	}
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 2; i++ {
		u := begin(t, m)
		if err := Seed(ctx, u); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
		if err := u.Commit(ctx); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}
	u := begin(t, m)
	fs, _ := u.Formats(ctx)
	if len(fs) != len(DefaultFormats()) {
		t.Fatalf("formats = %d", len(fs))
	}
	f, err := u.FormatByMIME(ctx, "APPLICATION/PDF")
	if err != nil || f.ShortDescription != "Adobe PDF" {
		t.Fatalf("by mime = %+v, %v", f, err)
	}
	if _, err := u.GroupByName(ctx, domain.AdminGroup); err != nil {
		t.Fatalf("admin group: %v", err)
	}
}
