package collect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jward/apisnap/internal/model"
)

// Rule identifies a structural validation rule.
type Rule int

const (
	RuleServiceRequiresProvided Rule = iota + 1
	RuleServiceWithProvides
	RuleProvidedFinal
	RuleProvidedKind
	RuleModifier
	RuleStaticField
	RuleExtension
	RuleUnusedType
	RuleDuplicateUnit
)

func (r Rule) String() string {
	switch r {
	case RuleServiceRequiresProvided:
		return "service-requires-provided"
	case RuleServiceWithProvides:
		return "service-with-provides"
	case RuleProvidedFinal:
		return "provided-final"
	case RuleProvidedKind:
		return "provided-kind"
	case RuleModifier:
		return "modifier"
	case RuleStaticField:
		return "static-field"
	case RuleExtension:
		return "extension"
	case RuleUnusedType:
		return "unused-type"
	case RuleDuplicateUnit:
		return "duplicate-unit"
	default:
		return "unknown"
	}
}

func (r Rule) message() string {
	switch r {
	case RuleServiceRequiresProvided:
		return "@Service also requires @Provided"
	case RuleServiceWithProvides:
		return "@Service cannot be used with @Provides"
	case RuleProvidedFinal:
		return "Final/sealed type marked with @Provided"
	case RuleProvidedKind:
		return "Non-class/interface marked with @Provided/@Provides"
	case RuleModifier:
		return "Only some modifiers are allowed in public API: [" + strings.Join(model.AllowedModifiers(), ", ") + "]"
	case RuleStaticField:
		return "Static API fields must be final"
	case RuleExtension:
		return "Only methods intended to be inherited by the backend can be marked with @Extension"
	case RuleUnusedType:
		return "API types must either be final, or annotated with @Service/@Provided/@Provides"
	case RuleDuplicateUnit:
		return "Compilation unit was already recorded by an earlier pass"
	default:
		return "unknown rule"
	}
}

// Violation is one structural validation failure on a declaration.
type Violation struct {
	Unit    string
	Decl    string
	Rule    Rule
	Message string
}

func newViolation(unit, decl string, rule Rule) Violation {
	return Violation{Unit: unit, Decl: decl, Rule: rule, Message: rule.message()}
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s: %s", v.Unit, v.Decl, v.Message)
}

// JoinViolations returns a single error listing every violation, or nil.
func JoinViolations(vs []Violation) error {
	if len(vs) == 0 {
		return nil
	}
	errs := make([]error, len(vs))
	for i, v := range vs {
		errs[i] = v
	}
	return errors.Join(errs...)
}
