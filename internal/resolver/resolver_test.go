package resolver

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"YakNS/internal/namehash"
	"YakNS/internal/registry"
	"YakNS/internal/storage"
)

var (
	authority    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice        = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	bob          = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	resolverAddr = common.HexToAddress("0x00000000000000000000000000000000000000d4")
)

// fixture holds a registry and a resolver sharing one store.
type fixture struct {
	reg  *registry.Registry
	res  *Resolver
	node common.Hash // node is "alice.yak", owned by alice
}

// newFixture creates a registry with alice owning alice.yak and a resolver bound to it.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg, err := registry.New(db, authority)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}

	tld, _ := reg.SetSubnodeOwner(authority, namehash.Root, namehash.LabelHash("yak"), authority)

	node, err := reg.SetSubnodeOwner(authority, tld, namehash.LabelHash("alice"), alice)
	if err != nil {
		t.Fatalf("failed to assign node: %v", err)
	}

	return &fixture{reg: reg, res: New(resolverAddr, reg, db), node: node}
}

// TestSetAddr_ByOwner verifies the node owner can publish an address.
func TestSetAddr_ByOwner(t *testing.T) {
	f := newFixture(t)

	if err := f.res.SetAddr(alice, f.node, bob); err != nil {
		t.Fatalf("SetAddr failed: %v", err)
	}

	got, ok := f.res.Addr(f.node)
	if !ok || got != bob {
		t.Errorf("Addr = %s, %v; want %s", got.Hex(), ok, bob.Hex())
	}
}

// TestSetRecord_RejectsNonOwner verifies writes are gated on registry ownership.
func TestSetRecord_RejectsNonOwner(t *testing.T) {
	f := newFixture(t)

	err := f.res.SetAddr(bob, f.node, bob)
	if !errors.Is(err, registry.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if _, ok := f.res.Addr(f.node); ok {
		t.Error("record written despite rejection")
	}
}

// TestSetRecord_FollowsTransfer verifies a transferred node is writable only by the new owner.
func TestSetRecord_FollowsTransfer(t *testing.T) {
	f := newFixture(t)

	if err := f.reg.SetOwner(alice, f.node, bob); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if err := f.res.SetName(alice, f.node, "old"); !errors.Is(err, registry.ErrUnauthorized) {
		t.Errorf("old owner write: %v", err)
	}

	if err := f.res.SetName(bob, f.node, "new"); err != nil {
		t.Errorf("new owner write failed: %v", err)
	}
}

// TestSetRecord_Validation verifies malformed values are rejected before authorization.
func TestSetRecord_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		kind  Kind
		value []byte
	}{
		{"short addr", KindAddr, []byte{1, 2, 3}},
		{"bad utf8 name", KindName, []byte{0xff}},
		{"text without key", KindText, []byte("x")},
		{"unknown kind", Kind(99), []byte("x")},
	}

	for _, tt := range tests {
		if err := f.res.SetRecord(alice, f.node, tt.kind, tt.value); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("%s: expected ErrInvalidRecord, got %v", tt.name, err)
		}
	}
}

// TestSetRecord_EmptyClears verifies an empty value removes the record.
func TestSetRecord_EmptyClears(t *testing.T) {
	f := newFixture(t)

	f.res.SetContentHash(alice, f.node, []byte{0xe3, 0x01})

	if err := f.res.SetContentHash(alice, f.node, nil); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if _, ok := f.res.ContentHash(f.node); ok {
		t.Error("content hash still present after clear")
	}
}

// TestText verifies keyed text records are independent.
func TestText(t *testing.T) {
	f := newFixture(t)

	f.res.SetText(alice, f.node, "url", "https://yak.example")
	f.res.SetText(alice, f.node, "email", "alice@yak.example")

	if v, ok := f.res.Text(f.node, "url"); !ok || v != "https://yak.example" {
		t.Errorf("url = %q, %v", v, ok)
	}

	if v, ok := f.res.Text(f.node, "email"); !ok || v != "alice@yak.example" {
		t.Errorf("email = %q, %v", v, ok)
	}

	if _, ok := f.res.Text(f.node, "avatar"); ok {
		t.Error("unexpected avatar record")
	}

	if err := f.res.SetText(alice, f.node, "", "x"); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("empty key: %v", err)
	}
}

// TestResolve_NoResolver verifies lookup on a node without resolver fails with ErrNoResolver.
func TestResolve_NoResolver(t *testing.T) {
	f := newFixture(t)
	dir := NewDirectory(f.res)

	if _, err := dir.Resolve(f.reg, f.node, KindAddr); !errors.Is(err, ErrNoResolver) {
		t.Errorf("expected ErrNoResolver, got %v", err)
	}
}

// TestResolve_UnknownResolver verifies a resolver pointer outside the directory is reported.
func TestResolve_UnknownResolver(t *testing.T) {
	f := newFixture(t)
	dir := NewDirectory()

	f.reg.SetResolver(alice, f.node, resolverAddr)

	if _, err := dir.Resolve(f.reg, f.node, KindAddr); !errors.Is(err, ErrUnknownResolver) {
		t.Errorf("expected ErrUnknownResolver, got %v", err)
	}
}

// TestResolve_Record verifies the full protocol: resolver pointer then record.
func TestResolve_Record(t *testing.T) {
	f := newFixture(t)
	dir := NewDirectory(f.res)

	f.reg.SetResolver(alice, f.node, f.res.Address())

	if _, err := dir.Resolve(f.reg, f.node, KindAddr); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}

	f.res.SetAddr(alice, f.node, bob)

	got, err := dir.Resolve(f.reg, f.node, KindAddr)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if !bytes.Equal(got, bob.Bytes()) {
		t.Errorf("Resolve = %x, want %x", got, bob.Bytes())
	}
}

// TestResolvers_Isolated verifies two resolvers on one store do not share records.
func TestResolvers_Isolated(t *testing.T) {
	f := newFixture(t)
	other := New(common.HexToAddress("0xee"), f.reg, f.res.db)

	f.res.SetName(alice, f.node, "alice")

	if _, ok := other.Name(f.node); ok {
		t.Error("record leaked across resolvers")
	}
}

// TestParseKind verifies every kind round-trips through its wire name.
func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindAddr, KindName, KindContentHash, KindText} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%s) = %v, %v", k, got, err)
		}
	}

	if _, err := ParseKind("pubkey"); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

// journal returns the registry entries appended since head.
func journal(t *testing.T, reg *registry.Registry, head uint64) []registry.Event {
	t.Helper()

	var events []registry.Event
	if err := reg.Events(head, func(ev registry.Event) error {
		events = append(events, ev)
		return nil
	}); err != nil {
		t.Fatalf("Events failed: %v", err)
	}

	return events
}

// TestRecordWrites_Journaled verifies each record change appends one entry naming the resolver.
func TestRecordWrites_Journaled(t *testing.T) {
	f := newFixture(t)
	head := f.reg.Head()

	f.res.SetAddr(alice, f.node, bob)
	f.res.SetName(alice, f.node, "alice.yak")
	f.res.SetContentHash(alice, f.node, []byte{0xe3, 0x01})
	f.res.SetText(alice, f.node, "url", "https://yak.example")

	events := journal(t, f.reg, head)

	want := []registry.EventKind{
		registry.EventAddrChanged,
		registry.EventNameChanged,
		registry.EventContentHashChanged,
		registry.EventTextChanged,
	}
	if len(events) != len(want) {
		t.Fatalf("got %d entries, want %d", len(events), len(want))
	}

	for i, ev := range events {
		if ev.Kind != want[i] || ev.Node != f.node || ev.Addr != resolverAddr {
			t.Errorf("entry %d = %+v", i, ev)
		}
	}

	if events[3].Label != crypto.Keccak256Hash([]byte("url")) {
		t.Errorf("text entry label = %s", events[3].Label.Hex())
	}
}

// TestRecordWrites_UnchangedNotJournaled verifies rewriting a value or clearing an absent record adds nothing.
func TestRecordWrites_UnchangedNotJournaled(t *testing.T) {
	f := newFixture(t)

	f.res.SetAddr(alice, f.node, bob)
	head := f.reg.Head()

	if err := f.res.SetAddr(alice, f.node, bob); err != nil {
		t.Fatalf("repeat SetAddr failed: %v", err)
	}
	if err := f.res.SetContentHash(alice, f.node, nil); err != nil {
		t.Fatalf("clearing absent record failed: %v", err)
	}

	if n := len(journal(t, f.reg, head)); n != 0 {
		t.Errorf("no-op writes appended %d entries", n)
	}

	// A rejected write is not journaled either.
	f.res.SetAddr(bob, f.node, bob)

	if n := len(journal(t, f.reg, head)); n != 0 {
		t.Errorf("rejected write appended %d entries", n)
	}
}
