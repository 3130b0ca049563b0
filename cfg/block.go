// Package cfg builds an approximate control-flow graph from a partial ARM
// instruction stream: it tolerates undefined instructions and unresolved
// branch targets rather than failing.
package cfg

import "github.com/marcef-go/armrecover/arm"

// Kind classifies a CFG node.
type Kind uint8

const (
	// Root is the single entry node of the graph.
	Root Kind = iota
	// Block is a non-empty run of instructions sharing one conditional.
	Block
	// Cond is an empty bifurcation landing pad for a non-ALWAYS conditional.
	Cond
	// UnknownBranch is an empty sink for a register-indirect or
	// out-of-range branch target.
	UnknownBranch
	// End is the single exit node of the graph.
	End
)

func (k Kind) String() string {
	switch k {
	case Root:
		return "ROOT"
	case Block:
		return "BLOCK"
	case Cond:
		return "COND"
	case UnknownBranch:
		return "UNKNOWN_BRANCH"
	case End:
		return "END"
	default:
		return "?"
	}
}

// Node is one CFG node. BLOCK nodes hold a non-empty, conditional-uniform
// instruction list; every other kind is always empty. Nodes never own their
// edges - the owning Graph stores predecessor/successor lists by index, so
// nodes can be freely split and rewired without pointer surgery.
type Node struct {
	Index        int
	Kind         Kind
	Instructions []arm.Instruction

	// SSA-auxiliary fields, reserved for a dominance pass this engine does
	// not perform.
	DomParent    *int
	IDom         *int
	DomFrontier  []int
	PhiFunctions map[arm.Reg][]int
}

// Conditional returns the shared conditional code of a BLOCK node's
// instructions. Calling it on a non-BLOCK or empty node is a programming
// error.
func (n *Node) Conditional() arm.Condition {
	return n.Instructions[0].Conditional
}

// EndsInBranch reports whether the node's last instruction is a branch -
// i.e. whether control cannot simply fall through past this node.
func (n *Node) EndsInBranch() bool {
	if len(n.Instructions) == 0 {
		return false
	}
	return n.Instructions[len(n.Instructions)-1].IsBranch
}
