package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// cfg predicates
	CfgInfo             Code = 1000
	CfgInvalidPredicate Code = 1001

	// inference
	InfInfo               Code = 2000
	InfUnificationFailure Code = 2001
	InfAmbiguousType      Code = 2002
	InfArityMismatch      Code = 2003
	InfTypeArgCount       Code = 2004

	// protocol conformance
	ConfInfo           Code = 3000
	ConfBoundViolation Code = 3001
	ConfNotAProtocol   Code = 3002

	// monomorphization
	MonoInfo          Code = 4000
	MonoInfiniteSize  Code = 4001
	MonoDepthLimit    Code = 4002
	MonoGenericEntry  Code = 4003
	MonoMissingEntry  Code = 4004
	MonoNotAFunction  Code = 4005
	MonoFailedInstDep Code = 4006
	MonoCyclicConst   Code = 4007

	// body checking
	ChkInfo           Code = 5000
	ChkTypeMismatch   Code = 5001
	ChkUnknownField   Code = 5002
	ChkUnknownMethod  Code = 5003
	ChkNotCallable    Code = 5004
	ChkCannotInfer    Code = 5005
	ChkInvalidOperand Code = 5006
	ChkInvalidCast    Code = 5007
	ChkNotAssignable  Code = 5008
	ChkUnknownLocal   Code = 5009
	ChkNotAPlace      Code = 5010
	ChkStructLit      Code = 5011
	ChkNotIndexable   Code = 5012
	ChkTupleIndex     Code = 5013
	ChkUnknownVariant Code = 5014
	ChkMissingValue   Code = 5015
	ChkNotAValue      Code = 5016

	// input / output
	IOInfo           Code = 6000
	IOLoadError      Code = 6001
	IOProgramInvalid Code = 6002

	// observability
	ObsInfo    Code = 7000
	ObsTimings Code = 7001

	// internal consistency failures
	InternalError             Code = 9000
	InternalDuplicateInstance Code = 9001
	InternalUnresolvedForward Code = 9002
	InternalMissingSubst      Code = 9003
	InternalLowering          Code = 9004
)

var codeDescription = map[Code]string{
	UnknownCode:               "Unknown error",
	CfgInfo:                   "cfg information",
	CfgInvalidPredicate:       "invalid cfg predicate",
	InfInfo:                   "inference information",
	InfUnificationFailure:     "conflicting type evidence",
	InfAmbiguousType:          "type annotations needed",
	InfArityMismatch:          "wrong number of arguments",
	InfTypeArgCount:           "wrong number of type arguments",
	ConfInfo:                  "conformance information",
	ConfBoundViolation:        "type does not satisfy protocol bound",
	ConfNotAProtocol:          "bound is not a protocol",
	MonoInfo:                  "monomorphization information",
	MonoInfiniteSize:          "recursive type has infinite size",
	MonoDepthLimit:            "instantiation depth limit exceeded",
	MonoGenericEntry:          "entry point must not be generic",
	MonoMissingEntry:          "entry point not found",
	MonoNotAFunction:          "item is not a function",
	MonoFailedInstDep:         "dependency failed to instantiate",
	MonoCyclicConst:           "constant depends on itself",
	ChkInfo:                   "check information",
	ChkTypeMismatch:           "mismatched types",
	ChkUnknownField:           "unknown field",
	ChkUnknownMethod:          "unknown method",
	ChkNotCallable:            "expression is not callable",
	ChkCannotInfer:            "cannot infer type",
	ChkInvalidOperand:         "invalid operand",
	ChkInvalidCast:            "invalid cast",
	ChkNotAssignable:          "value is not assignable",
	ChkUnknownLocal:           "unknown local",
	ChkNotAPlace:              "expression is not a place",
	ChkStructLit:              "invalid struct literal",
	ChkNotIndexable:           "value cannot be indexed",
	ChkTupleIndex:             "tuple index out of range",
	ChkUnknownVariant:         "unknown enum variant",
	ChkMissingValue:           "missing value",
	ChkNotAValue:              "item is not a value",
	IOInfo:                    "io information",
	IOLoadError:               "cannot load program",
	IOProgramInvalid:          "malformed program",
	ObsInfo:                   "observability information",
	ObsTimings:                "pipeline timings",
	InternalError:             "internal compiler error",
	InternalDuplicateInstance: "duplicate instantiation",
	InternalUnresolvedForward: "unresolved forward reference",
	InternalMissingSubst:      "incomplete substitution",
	InternalLowering:          "IR lowering failure",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("INF%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CNF%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("MONO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("CHK%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("OBS%04d", ic)
	case ic >= 9000 && ic < 10000:
		return fmt.Sprintf("ICE%04d", ic)
	}
	return "E0000"
}

// IsInternal reports codes that signal an engine bug rather than a user error.
func (c Code) IsInternal() bool {
	return c >= InternalError && c < InternalError+1000
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
