package ast

type (
	NodeID uint32
	VarID  uint32
	FuncID uint32
)

const (
	NoNodeID NodeID = 0
	NoVarID  VarID  = 0
	NoFuncID FuncID = 0
)

func (id NodeID) IsValid() bool { return id != NoNodeID }
func (id VarID) IsValid() bool  { return id != NoVarID }
func (id FuncID) IsValid() bool { return id != NoFuncID }
