package ir

// InstructionVisitor has one method per instruction kind. Adding an
// instruction kind adds a method here, so every visitor stops compiling until
// it handles the new kind.
type InstructionVisitor interface {
	VisitBinary(i *Binary) error
	VisitCast(i *Cast) error
	VisitGetElementPtr(i *GetElementPtr) error
	VisitICmp(i *ICmp) error
	VisitSelect(i *Select) error
	VisitPhi(i *Phi) error
	VisitRet(i *Ret) error
	VisitBr(i *Br) error
	VisitCondBr(i *CondBr) error
	VisitSwitch(i *Switch) error
	VisitAlloca(i *Alloca) error
	VisitLoad(i *Load) error
	VisitStore(i *Store) error
	VisitCall(i *Call) error
}

func (i *Binary) Accept(v InstructionVisitor) error        { return v.VisitBinary(i) }
func (i *Cast) Accept(v InstructionVisitor) error          { return v.VisitCast(i) }
func (i *GetElementPtr) Accept(v InstructionVisitor) error { return v.VisitGetElementPtr(i) }
func (i *ICmp) Accept(v InstructionVisitor) error          { return v.VisitICmp(i) }
func (i *Select) Accept(v InstructionVisitor) error        { return v.VisitSelect(i) }
func (i *Phi) Accept(v InstructionVisitor) error           { return v.VisitPhi(i) }
func (i *Ret) Accept(v InstructionVisitor) error           { return v.VisitRet(i) }
func (i *Br) Accept(v InstructionVisitor) error            { return v.VisitBr(i) }
func (i *CondBr) Accept(v InstructionVisitor) error        { return v.VisitCondBr(i) }
func (i *Switch) Accept(v InstructionVisitor) error        { return v.VisitSwitch(i) }
func (i *Alloca) Accept(v InstructionVisitor) error        { return v.VisitAlloca(i) }
func (i *Load) Accept(v InstructionVisitor) error          { return v.VisitLoad(i) }
func (i *Store) Accept(v InstructionVisitor) error         { return v.VisitStore(i) }
func (i *Call) Accept(v InstructionVisitor) error          { return v.VisitCall(i) }
