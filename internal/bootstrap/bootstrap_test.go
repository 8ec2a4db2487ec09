package bootstrap

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"YakNS/internal/namehash"
	"YakNS/internal/registry"
	"YakNS/internal/storage"
)

var (
	authority = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

// newTestStorage creates an in-memory storage closed at test end.
func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()

	db, err := storage.NewInMemory()
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// newTestBootstrapper creates a bootstrapper for tld "yak".
func newTestBootstrapper(t *testing.T, db *storage.Storage) *Bootstrapper {
	t.Helper()

	b, err := New(Config{Authority: authority, TLD: "yak"}, db)
	if err != nil {
		t.Fatalf("failed to create bootstrapper: %v", err)
	}

	return b
}

// TestRun_EndToEnd verifies the final delegation tree for tld "yak".
func TestRun_EndToEnd(t *testing.T) {
	db := newTestStorage(t)

	sys, err := newTestBootstrapper(t, db).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	addrs := DeriveAddresses(authority)
	reg := sys.Registry

	if got := reg.Owner(namehash.Root); got != authority {
		t.Errorf("root owner = %s", got.Hex())
	}

	yak := namehash.Subnode(namehash.Root, namehash.LabelHash("yak"))
	if got := reg.Owner(yak); got != addrs.Registrar {
		t.Errorf("yak owner = %s, want registrar %s", got.Hex(), addrs.Registrar.Hex())
	}

	resolverNode := namehash.Subnode(namehash.Root, namehash.LabelHash("resolver"))
	if got := reg.Resolver(resolverNode); got != addrs.Resolver {
		t.Errorf("resolver of resolver node = %s, want %s", got.Hex(), addrs.Resolver.Hex())
	}

	if got, ok := sys.Resolver.Addr(resolverNode); !ok || got != addrs.Resolver {
		t.Errorf("addr record of resolver node = %s, %v", got.Hex(), ok)
	}

	reverseNode := namehash.Subnode(namehash.Root, namehash.LabelHash("reverse"))
	addrReverse := namehash.Subnode(reverseNode, namehash.LabelHash("addr"))
	if got := reg.Owner(addrReverse); got != addrs.ReverseRegistrar {
		t.Errorf("addr.reverse owner = %s, want %s", got.Hex(), addrs.ReverseRegistrar.Hex())
	}

	if got := reg.Owner(reverseNode); got != authority {
		t.Errorf("reverse owner = %s, want authority", got.Hex())
	}

	if step, _ := sys.Progress(); !step.Complete() {
		t.Errorf("progress = %s, want complete", step)
	}
}

// TestRun_StateAfterEachStep checks the intermediate states named by the sequence.
func TestRun_StateAfterEachStep(t *testing.T) {
	db := newTestStorage(t)
	b := newTestBootstrapper(t, db)
	addrs := DeriveAddresses(authority)

	var seen []Step
	b.afterStep = func(s Step) error {
		seen = append(seen, s)
		reg := b.sys.Registry

		switch s {
		case StepResolverNode:
			node := namehash.Namehash("resolver")
			if reg.Resolver(node) != addrs.Resolver {
				t.Errorf("after %s: resolver not set", s)
			}
			if got, _ := b.sys.Resolver.Addr(node); got != addrs.Resolver {
				t.Errorf("after %s: addr record = %s", s, got.Hex())
			}
			if reg.Owner(namehash.Namehash("yak")) != (common.Address{}) {
				t.Errorf("after %s: tld delegated too early", s)
			}
		case StepRegistrar:
			if got := reg.Owner(namehash.Namehash("yak")); got != addrs.Registrar {
				t.Errorf("after %s: yak owner = %s", s, got.Hex())
			}
		}

		return nil
	}

	if _, err := b.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(seen) != len(steps) {
		t.Fatalf("ran %d steps, want %d", len(seen), len(steps))
	}

	for i, s := range seen {
		if s != steps[i] {
			t.Errorf("step %d = %s, want %s", i, s, steps[i])
		}
	}
}

// TestRun_Rerun verifies a second run converges without new writes.
func TestRun_Rerun(t *testing.T) {
	db := newTestStorage(t)

	sys1, err := newTestBootstrapper(t, db).Run()
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	before := countEvents(t, sys1.Registry)

	sys2, err := newTestBootstrapper(t, db).Run()
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if after := countEvents(t, sys2.Registry); after != before {
		t.Errorf("re-run journaled %d new events", after-before)
	}

	if sys1.Addresses != sys2.Addresses {
		t.Error("component addresses changed between runs")
	}
}

// TestRun_ResumeAfterInterrupt verifies a run stopped mid-sequence can be completed later.
func TestRun_ResumeAfterInterrupt(t *testing.T) {
	db := newTestStorage(t)
	crash := errors.New("crash")

	b := newTestBootstrapper(t, db)
	b.afterStep = func(s Step) error {
		if s == StepRegistrar {
			return crash
		}
		return nil
	}

	_, err := b.Run()

	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != StepRegistrar || !errors.Is(err, crash) {
		t.Fatalf("expected StepError at registrar, got %v", err)
	}

	if step, _ := Progress(db); step != StepRegistrar {
		t.Errorf("progress = %s, want registrar", step)
	}

	sys, err := newTestBootstrapper(t, db).Run()
	if err != nil {
		t.Fatalf("resumed Run failed: %v", err)
	}

	if got := sys.Registry.Owner(namehash.ReverseAddrNode); got != sys.Addresses.ReverseRegistrar {
		t.Errorf("addr.reverse owner = %s after resume", got.Hex())
	}
}

// TestRun_FatalWithoutRollback verifies a failing step stops the sequence and keeps earlier writes.
func TestRun_FatalWithoutRollback(t *testing.T) {
	db := newTestStorage(t)

	// The authority gives the root away before the bootstrap, so it cannot assign children.
	reg, err := registry.New(db, authority)
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}
	if err := reg.SetOwner(authority, namehash.Root, bob); err != nil {
		t.Fatalf("SetOwner failed: %v", err)
	}

	_, err = newTestBootstrapper(t, db).Run()

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}

	if stepErr.Step != StepResolverNode {
		t.Errorf("failed at %s, want resolver-node", stepErr.Step)
	}

	if !errors.Is(err, registry.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized in chain, got %v", err)
	}

	if step, _ := Progress(db); step != StepResolver {
		t.Errorf("progress = %s, want resolver", step)
	}

	reopened, _ := registry.New(db, authority)
	if reopened.Owner(namehash.Namehash("yak")) != (common.Address{}) {
		t.Error("later step ran after failure")
	}
}

// TestSystem_RegisterAndResolve exercises registration, forward and reverse lookups after bootstrap.
func TestSystem_RegisterAndResolve(t *testing.T) {
	sys, err := newTestBootstrapper(t, newTestStorage(t)).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	node, err := sys.Registrar.Register("alice", alice)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := sys.Registry.SetResolver(alice, node, sys.Resolver.Address()); err != nil {
		t.Fatalf("SetResolver failed: %v", err)
	}

	if err := sys.Resolver.SetAddr(alice, node, alice); err != nil {
		t.Fatalf("SetAddr failed: %v", err)
	}

	got, err := sys.ResolveAddr("alice.yak")
	if err != nil || got != alice {
		t.Errorf("ResolveAddr = %s, %v", got.Hex(), err)
	}

	if _, err := sys.Reverse.SetName(alice, "alice.yak"); err != nil {
		t.Fatalf("reverse SetName failed: %v", err)
	}

	name, err := sys.ReverseName(alice)
	if err != nil || name != "alice.yak" {
		t.Errorf("ReverseName = %q, %v", name, err)
	}

	if _, err := sys.ReverseName(bob); err == nil {
		t.Error("expected error for unclaimed reverse node")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Authority: authority, TLD: "yak"}, false},
		{"no authority", Config{TLD: "yak"}, true},
		{"empty tld", Config{Authority: authority}, true},
		{"dotted tld", Config{Authority: authority, TLD: "y.ak"}, true},
		{"reserved tld", Config{Authority: authority, TLD: "reverse"}, true},
	}

	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

// TestDeriveAddresses verifies identities are deterministic and distinct.
func TestDeriveAddresses(t *testing.T) {
	a := DeriveAddresses(authority)
	b := DeriveAddresses(authority)

	if a != b {
		t.Error("DeriveAddresses not deterministic")
	}

	seen := map[common.Address]bool{}
	for _, addr := range []common.Address{a.Registry, a.Resolver, a.Registrar, a.ReverseRegistrar} {
		if seen[addr] {
			t.Errorf("duplicate address %s", addr.Hex())
		}
		seen[addr] = true
	}
}

func TestStepString(t *testing.T) {
	if StepReverseNode.String() != "reverse-node" || Step(42).String() != "step(42)" {
		t.Error("unexpected step names")
	}
}

// countEvents returns the number of registry journal entries.
func countEvents(t *testing.T, reg *registry.Registry) int {
	t.Helper()

	n := 0
	if err := reg.Events(0, func(registry.Event) error { n++; return nil }); err != nil {
		t.Fatalf("Events failed: %v", err)
	}

	return n
}
