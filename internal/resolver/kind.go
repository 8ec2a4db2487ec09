package resolver

import (
	"fmt"
	"strings"

	"YakNS/internal/registry"
)

// Kind distinguishes the record types a resolver stores per node.
type Kind uint16

const (
	KindAddr        Kind = iota + 1 // 20-byte address
	KindName                        // UTF-8 name, used by reverse nodes
	KindContentHash                 // opaque content identifier
	KindText                        // keyed UTF-8 values
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAddr:
		return "addr"
	case KindName:
		return "name"
	case KindContentHash:
		return "contenthash"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", uint16(k))
	}
}

// ParseKind maps a wire name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "addr":
		return KindAddr, nil
	case "name":
		return KindName, nil
	case "contenthash":
		return KindContentHash, nil
	case "text":
		return KindText, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, s)
	}
}

// event returns the journal entry kind recording a change of this record kind.
func (k Kind) event() registry.EventKind {
	switch k {
	case KindAddr:
		return registry.EventAddrChanged
	case KindName:
		return registry.EventNameChanged
	case KindContentHash:
		return registry.EventContentHashChanged
	default:
		return registry.EventTextChanged
	}
}
