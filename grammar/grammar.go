package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is a textual IR module.
type File struct {
	Pos     lexer.Position
	Entries []*Entry `@@*`
}

type Entry struct {
	Pos     lexer.Position
	Source  *SourceFilename `  @@`
	Target  *Target         `| @@`
	TypeDef *TypeDef        `| @@`
	Global  *GlobalDef      `| @@`
	Declare *Declare        `| @@`
	Define  *Define         `| @@`
	Attrs   *AttrGroup      `| @@`
}

type SourceFilename struct {
	Name string `"source_filename" "=" @String`
}

type Target struct {
	Kind  string `"target" @("datalayout" | "triple")`
	Value string `"=" @String`
}

type AttrGroup struct {
	Ref    string   `"attributes" @AttrRef "=" "{"`
	Tokens []string `( @(String | Ident | Int | IntType | Label) | @("=" | "(" | ")" | ",") )* "}"`
}

type TypeDef struct {
	Pos    lexer.Position
	Name   string    `@Local "=" "type"`
	Opaque bool      `( @"opaque"`
	Body   *TypeExpr `| @@ )`
}

type GlobalDef struct {
	Pos     lexer.Position
	Name    string       `@Global "="`
	Linkage []string     `@( "private" | "internal" | "external" | "common" | "weak" | "linkonce_odr" | "dso_local" | "unnamed_addr" | "local_unnamed_addr" | "hidden" )*`
	Kind    string       `@( "global" | "constant" )`
	Type    *TypeExpr    `@@`
	Init    *Initializer `@@?`
	Align   *int         `( "," "align" @Int )?`
}

// Initializer is a scalar or character array constant. Globals without one
// are external.
type Initializer struct {
	Pos     lexer.Position
	CString *string `  @CString`
	Int     *int64  `| @Int`
	Bool    *string `| @( "true" | "false" )`
	Null    bool    `| @"null"`
	Zero    bool    `| @( "zeroinitializer" | "undef" )`
}

type Declare struct {
	Pos     lexer.Position
	Attrs   []string  `"declare" @( "dso_local" | "noundef" | "zeroext" | "signext" | "noalias" )*`
	Return  *TypeExpr `@@`
	Name    string    `@Global "("`
	Params  []*Param  `( @@ ( "," @@ )* )? ")"`
	FnAttrs []string  `( @AttrRef | @( "nounwind" | "local_unnamed_addr" | "unnamed_addr" ) )*`
}

type Define struct {
	Pos     lexer.Position
	Linkage []string  `"define" @( "private" | "internal" | "external" | "dso_local" | "noundef" | "zeroext" | "signext" )*`
	Return  *TypeExpr `@@`
	Name    string    `@Global "("`
	Params  []*Param  `( @@ ( "," @@ )* )? ")"`
	FnAttrs []string  `( @AttrRef | @( "nounwind" | "local_unnamed_addr" | "unnamed_addr" ) )*`
	Blocks  []*Block  `"{" @@* "}"`
}

// Param is a parameter in a signature or function type. Declarations and
// function types omit the name.
type Param struct {
	Pos      lexer.Position
	Variadic bool      `( @Ellipsis`
	Type     *TypeExpr `| @@`
	Attrs    []string  `  @( "noundef" | "zeroext" | "signext" | "nocapture" | "readonly" | "writeonly" | "nonnull" | "noalias" )*`
	Name     string    `  @Local? )`
}

type Block struct {
	Pos          lexer.Position
	Label        string         `@Label?`
	Instructions []*Instruction `@@+`
}

type Instruction struct {
	Pos    lexer.Position
	Result string      `( @Local "=" )?`
	Binary *BinaryInst `( @@`
	Cast   *CastInst   `| @@`
	GEP    *GEPInst    `| @@`
	ICmp   *ICmpInst   `| @@`
	Select *SelectInst `| @@`
	Phi    *PhiInst    `| @@`
	Ret    *RetInst    `| @@`
	Br     *BrInst     `| @@`
	Switch *SwitchInst `| @@`
	Alloca *AllocaInst `| @@`
	Load   *LoadInst   `| @@`
	Store  *StoreInst  `| @@`
	Call   *CallInst   `| @@ )`
}

// IsTerminator reports whether the instruction ends a block.
func (i *Instruction) IsTerminator() bool {
	return i.Ret != nil || i.Br != nil || i.Switch != nil
}

type BinaryInst struct {
	Op    string    `@( "add" | "sub" | "mul" | "sdiv" | "srem" | "udiv" | "urem" | "shl" | "lshr" | "ashr" | "and" | "or" | "xor" )`
	Flags []string  `@( "nsw" | "nuw" | "exact" )*`
	Type  *TypeExpr `@@`
	LHS   *Value    `@@ ","`
	RHS   *Value    `@@`
}

type CastInst struct {
	Op    string    `@( "bitcast" | "ptrtoint" | "inttoptr" | "sext" | "zext" | "trunc" )`
	From  *TypeExpr `@@`
	Value *Value    `@@`
	To    *TypeExpr `"to" @@`
}

type GEPInst struct {
	Inbounds bool     `"getelementptr" @"inbounds"?`
	Body     *GEPBody `@@`
}

// GEPBody accepts both the explicit form "T, T* %p, ..." and the older
// implicit form "T* %p, ...".
type GEPBody struct {
	First   *TypeExpr     `@@`
	Second  *TypeExpr     `( "," @@ )?`
	Base    *Value        `@@`
	Indices []*TypedValue `( "," @@ )*`
}

type ICmpInst struct {
	Pred string    `"icmp" @Ident`
	Type *TypeExpr `@@`
	LHS  *Value    `@@ ","`
	RHS  *Value    `@@`
}

type SelectInst struct {
	Cond  *TypedValue `"select" @@ ","`
	True  *TypedValue `@@ ","`
	False *TypedValue `@@`
}

type PhiInst struct {
	Type  *TypeExpr  `"phi" @@`
	Edges []*PhiEdge `@@ ( "," @@ )*`
}

type PhiEdge struct {
	Pos   lexer.Position
	Value *Value `"[" @@ ","`
	Block string `@Local "]"`
}

type RetInst struct {
	Void  bool      `"ret" ( @"void"`
	Type  *TypeExpr `| @@`
	Value *Value    `  @@ )`
}

type BrInst struct {
	Target string      `"br" ( "label" @Local`
	Cond   *TypedValue `| @@`
	True   string      `  "," "label" @Local`
	False  string      `  "," "label" @Local )`
}

type SwitchInst struct {
	Value   *TypedValue   `"switch" @@ ","`
	Default string        `"label" @Local "["`
	Cases   []*SwitchCase `@@* "]"`
}

type SwitchCase struct {
	Pos    lexer.Position
	Value  *TypedValue `@@ ","`
	Target string      `"label" @Local`
}

type AllocaInst struct {
	Type  *TypeExpr `"alloca" @@`
	Align *int      `( "," "align" @Int )?`
}

type LoadInst struct {
	Volatile bool      `"load" @"volatile"?`
	First    *TypeExpr `@@`
	Second   *TypeExpr `( "," @@ )?`
	Ptr      *Value    `@@`
	Align    *int      `( "," "align" @Int )?`
}

type StoreInst struct {
	Volatile bool        `"store" @"volatile"?`
	Value    *TypedValue `@@ ","`
	Ptr      *TypedValue `@@`
	Align    *int        `( "," "align" @Int )?`
}

type CallInst struct {
	Tail    string      `@( "tail" | "musttail" | "notail" )?`
	Attrs   []string    `"call" @( "noundef" | "zeroext" | "signext" | "noalias" )*`
	Type    *TypeExpr   `@@`
	Callee  *Value      `@@`
	Args    []*CallArg  `"(" ( @@ ( "," @@ )* )? ")"`
	FnAttrs []string    `@AttrRef*`
}

type CallArg struct {
	Pos   lexer.Position
	Type  *TypeExpr `@@`
	Attrs []string  `@( "noundef" | "zeroext" | "signext" | "nocapture" | "readonly" | "nonnull" )*`
	Value *Value    `@@`
}

type TypeExpr struct {
	Pos      lexer.Position
	Void     bool            `( @"void"`
	Int      string          `| @IntType`
	Named    string          `| @Local`
	Array    *ArrayTypeExpr  `| @@`
	Struct   *StructTypeExpr `| @@ )`
	Suffixes []*TypeSuffix   `@@*`
}

type ArrayTypeExpr struct {
	Len  int       `"[" @Int "x"`
	Elem *TypeExpr `@@ "]"`
}

type StructTypeExpr struct {
	Open   bool        `@"{"`
	Fields []*TypeExpr `( @@ ( "," @@ )* )? "}"`
}

type TypeSuffix struct {
	Pointer bool       `  @"*"`
	Func    *FuncTypes `| @@`
}

type FuncTypes struct {
	Open   bool     `@"("`
	Params []*Param `( @@ ( "," @@ )* )? ")"`
}

type TypedValue struct {
	Pos   lexer.Position
	Type  *TypeExpr `@@`
	Value *Value    `@@`
}

type Value struct {
	Pos    lexer.Position
	Local  *string    `  @Local`
	Global *string    `| @Global`
	Int    *int64     `| @Int`
	Bool   *string    `| @( "true" | "false" )`
	Null   bool       `| @"null"`
	Undef  bool       `| @( "undef" | "poison" )`
	Zero   bool       `| @"zeroinitializer"`
	GEP    *ConstGEP  `| @@`
	Cast   *ConstCast `| @@`
}

type ConstGEP struct {
	Inbounds bool     `"getelementptr" @"inbounds"?`
	Body     *GEPBody `"(" @@ ")"`
}

type ConstCast struct {
	Op    string      `@( "bitcast" | "ptrtoint" | "inttoptr" )`
	Value *TypedValue `"(" @@`
	To    *TypeExpr   `"to" @@ ")"`
}
