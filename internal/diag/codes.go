package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// qualifier sequences
	QuaInfo                  Code = 1000
	QuaOrder                 Code = 1001
	QuaRepeated              Code = 1002
	QuaInvalidParameter      Code = 1003
	QuaInvalidCombination    Code = 1004
	QuaInterpolationNotFirst Code = 1005

	// semantic checks performed by lowering passes
	SemInfo              Code = 2000
	SemPLSMissingBinding Code = 2001
	SemPLSVersion        Code = 2002
	SemPLSDuplicateBind  Code = 2003
	SemMonoNonGlobalArg  Code = 2004
	SemMonoDepthExceeded Code = 2005
	SemDerivativeOperand Code = 2006
	SemPLSUnknownBinding Code = 2007
	SemPLSMissingEntry   Code = 2008

	// rewrite engine
	PasInfo      Code = 3000
	PasStaleEdit Code = 3001
	PasContract  Code = 3002
	PasFailed    Code = 3003
	PasHalted    Code = 3004

	// AST validation
	AstInfo           Code = 4000
	AstMultipleParent Code = 4001
	AstParentLink     Code = 4002
	AstDeadNode       Code = 4003
	AstForeignType    Code = 4004
	AstUndeclaredVar  Code = 4005
	AstMissingChild   Code = 4006
	AstBadShape       Code = 4007

	// interchange documents
	IOInfo        Code = 5000
	IOLoadFile    Code = 5001
	IODecode      Code = 5002
	IOBadDocument Code = 5003

	// configuration
	CfgInfo    Code = 6000
	CfgInvalid Code = 6001

	ObsInfo    Code = 7000
	ObsTimings Code = 7001
)

var codeDescription = map[Code]string{
	UnknownCode:              "Unknown error",
	QuaInfo:                  "Qualifier information",
	QuaOrder:                 "Qualifiers out of order",
	QuaRepeated:              "Qualifier specified multiple times",
	QuaInvalidParameter:      "Invalid parameter qualifier",
	QuaInvalidCombination:    "Invalid qualifier combination",
	QuaInterpolationNotFirst: "Interpolation qualifier after storage",
	SemInfo:                  "Semantic information",
	SemPLSMissingBinding:     "Pixel local storage plane without binding",
	SemPLSVersion:            "Pixel local storage needs image support",
	SemPLSDuplicateBind:      "Pixel local storage binding declared twice",
	SemMonoNonGlobalArg:      "Opaque argument is not a global",
	SemMonoDepthExceeded:     "Monomorphization depth exceeded",
	SemDerivativeOperand:     "Derivative without operand",
	SemPLSUnknownBinding:     "Pixel local storage plane used before declaration",
	SemPLSMissingEntry:       "Shader has no main function",
	PasInfo:                  "Pass information",
	PasStaleEdit:             "Stale tree edit",
	PasContract:              "Rewrite contract violation",
	PasFailed:                "Pass failed",
	PasHalted:                "Pipeline halted",
	AstInfo:                  "AST validation information",
	AstMultipleParent:        "Node has multiple parents",
	AstParentLink:            "Broken parent link",
	AstDeadNode:              "Released node is still reachable",
	AstForeignType:           "Type from another interner",
	AstUndeclaredVar:         "Variable used before declaration",
	AstMissingChild:          "Required child is missing",
	AstBadShape:              "Malformed node",
	IOInfo:                   "I/O information",
	IOLoadFile:               "I/O load file error",
	IODecode:                 "Cannot decode document",
	IOBadDocument:            "Malformed document",
	CfgInfo:                  "Configuration information",
	CfgInvalid:               "Invalid configuration",
	ObsInfo:                  "Observability information",
	ObsTimings:               "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("QUA%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("PAS%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("AST%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
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
