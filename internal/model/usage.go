package model

// Usage describes how a type may be used across the API boundary.
type Usage int

const (
	// UsageNone is an inert leaf type: it must be final or used as a supertype.
	UsageNone Usage = iota
	UsageService
	UsageProvided
	UsageProvides
	UsageTwoWay
)

// InheritableByBackend reports whether the code defining the facade may
// implement or extend the type.
func (u Usage) InheritableByBackend() bool {
	switch u {
	case UsageService, UsageProvided, UsageTwoWay:
		return true
	case UsageNone, UsageProvides:
		return false
	default:
		panic("model: unknown usage")
	}
}

// InheritableByClient reports whether external client code may implement
// the type as a callback.
func (u Usage) InheritableByClient() bool {
	switch u {
	case UsageProvides, UsageTwoWay:
		return true
	case UsageNone, UsageService, UsageProvided:
		return false
	default:
		panic("model: unknown usage")
	}
}

func (u Usage) String() string {
	switch u {
	case UsageNone:
		return "none"
	case UsageService:
		return "service"
	case UsageProvided:
		return "provided"
	case UsageProvides:
		return "provides"
	case UsageTwoWay:
		return "two-way"
	default:
		return "unknown"
	}
}
