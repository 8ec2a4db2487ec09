package registrar

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"YakNS/internal/namehash"
	"YakNS/internal/registry"
	"YakNS/internal/storage"
)

var (
	authority     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice         = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	bob           = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	registrarAddr = common.HexToAddress("0x00000000000000000000000000000000000000d4")
)

// newTestRegistrar creates a registry with "yak" delegated to a registrar.
func newTestRegistrar(t *testing.T) (*Registrar, *registry.Registry) {
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

	tld, err := reg.SetSubnodeOwner(authority, namehash.Root, namehash.LabelHash("yak"), registrarAddr)
	if err != nil {
		t.Fatalf("failed to delegate tld: %v", err)
	}

	return New(registrarAddr, reg, tld), reg
}

// TestRegister_Unowned verifies a free label is assigned to the claimant.
func TestRegister_Unowned(t *testing.T) {
	r, reg := newTestRegistrar(t)

	node, err := r.Register("alice", alice)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if node != namehash.Namehash("alice.yak") {
		t.Errorf("node = %s, want namehash(alice.yak)", node.Hex())
	}

	if got := reg.Owner(node); got != alice {
		t.Errorf("owner = %s, want %s", got.Hex(), alice.Hex())
	}
}

// TestRegister_AlreadyRegistered verifies first-come-first-served and that the owner is kept.
func TestRegister_AlreadyRegistered(t *testing.T) {
	r, reg := newTestRegistrar(t)

	node, _ := r.Register("alice", alice)

	if _, err := r.Register("alice", bob); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	// The current owner cannot re-register either.
	if _, err := r.Register("alice", alice); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("re-registration by owner: %v", err)
	}

	if got := reg.Owner(node); got != alice {
		t.Errorf("owner changed to %s", got.Hex())
	}
}

// TestRegister_AfterRetire verifies a name retired to the zero owner becomes available again.
func TestRegister_AfterRetire(t *testing.T) {
	r, reg := newTestRegistrar(t)

	node, _ := r.Register("alice", alice)
	reg.SetOwner(alice, node, common.Address{})

	if !r.Available("alice") {
		t.Fatal("retired name should be available")
	}

	if _, err := r.Register("alice", bob); err != nil {
		t.Errorf("Register after retire failed: %v", err)
	}
}

// TestRegister_InvalidInput verifies label and claimant validation.
func TestRegister_InvalidInput(t *testing.T) {
	r, _ := newTestRegistrar(t)

	if _, err := r.Register("a.b", alice); !errors.Is(err, namehash.ErrInvalidLabel) {
		t.Errorf("dotted label: %v", err)
	}

	if _, err := r.Register("", alice); !errors.Is(err, namehash.ErrInvalidLabel) {
		t.Errorf("empty label: %v", err)
	}

	if _, err := r.Register("alice", common.Address{}); !errors.Is(err, ErrInvalidClaimant) {
		t.Errorf("zero claimant: %v", err)
	}
}

// TestRegister_WithoutDelegation verifies a registrar not owning its TLD surfaces ErrUnauthorized.
func TestRegister_WithoutDelegation(t *testing.T) {
	_, reg := newTestRegistrar(t)

	orphan := New(bob, reg, namehash.Namehash("yak"))

	if _, err := orphan.Register("alice", alice); !errors.Is(err, registry.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAvailable(t *testing.T) {
	r, _ := newTestRegistrar(t)

	if !r.Available("carol") {
		t.Error("carol should be available")
	}

	r.Register("carol", alice)

	if r.Available("carol") {
		t.Error("carol should be taken")
	}

	if r.Available("bad.label") {
		t.Error("invalid label reported available")
	}
}
