package bootstrap

import (
	"fmt"

	"YakNS/internal/storage"
)

// Step is one stage of the bootstrap sequence. Steps run in declaration order;
// each relies on the ownership grants of the ones before it.
type Step uint8

const (
	StepNone             Step = iota // nothing applied yet
	StepRegistry                     // registry opened, root owned by the authority
	StepResolver                     // resolver created
	StepResolverNode                 // "resolver" node points at and publishes the resolver
	StepRegistrar                    // TLD delegated to the registrar
	StepReverseRegistrar             // reverse registrar created
	StepReverseNode                  // "addr.reverse" delegated to the reverse registrar
)

// steps is the fixed execution order.
var steps = []Step{
	StepRegistry,
	StepResolver,
	StepResolverNode,
	StepRegistrar,
	StepReverseRegistrar,
	StepReverseNode,
}

// String returns the step name used in logs and errors.
func (s Step) String() string {
	switch s {
	case StepNone:
		return "none"
	case StepRegistry:
		return "registry"
	case StepResolver:
		return "resolver"
	case StepResolverNode:
		return "resolver-node"
	case StepRegistrar:
		return "registrar"
	case StepReverseRegistrar:
		return "reverse-registrar"
	case StepReverseNode:
		return "reverse-node"
	default:
		return fmt.Sprintf("step(%d)", uint8(s))
	}
}

// Complete reports whether every step has been applied.
func (s Step) Complete() bool {
	return s == StepReverseNode
}

// StepError is returned when a step fails. Steps before it stay applied.
type StepError struct {
	Step Step
	Err  error
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("bootstrap step %s:\n%v", e.Step, e.Err)
}

// Unwrap returns the underlying failure.
func (e *StepError) Unwrap() error {
	return e.Err
}

// progressKey stores the last step applied.
var progressKey = []byte("m:bootstrap")

// Progress returns the last completed step recorded in db.
func Progress(db *storage.Storage) (Step, error) {
	data, err := db.Get(progressKey)
	if err != nil {
		return StepNone, err
	}

	if len(data) != 1 {
		return StepNone, nil
	}

	return Step(data[0]), nil
}

// saveProgress records s as the last completed step.
func saveProgress(db *storage.Storage, s Step) error {
	return db.Set(progressKey, []byte{byte(s)})
}
