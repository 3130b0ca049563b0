package cfg_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/marcef-go/armrecover/arm"
	"github.com/marcef-go/armrecover/cfg"
	"github.com/marcef-go/armrecover/program"
)

// addInstruction builds an unconditional (ALWAYS) register-form ADD Rd, Rn,
// Rm at addr - a plain, non-branching data-processing instruction useful as
// CFG filler.
func addInstruction(addr, rd, rn, rm uint32) arm.Instruction {
	encoding := uint32(0xE0800000) | (rn << 16) | (rd << 12) | rm
	return arm.Decode(encoding, addr)
}

// branchInstruction builds an unconditional B at addr targeting target.
func branchInstruction(addr, target uint32) arm.Instruction {
	offset := int64(target) - int64(addr) - 8
	imm24 := uint32(offset>>2) & 0xFFFFFF
	encoding := uint32(0xEA000000) | imm24
	return arm.Decode(encoding, addr)
}

func mustProgram(instrs []arm.Instruction) *program.Program {
	p, err := program.New(instrs, []program.Function{{Name: "f", Instructions: instrs}})
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("Builder", func() {
	Describe("branch helper fixtures", func() {
		It("produces a branch instruction whose target resolves as expected", func() {
			b := branchInstruction(12, 4)
			addr, ok := b.BranchTargetAddress()
			Expect(ok).To(BeTrue())
			Expect(addr).To(Equal(uint32(4)))
		})
	})

	// Seed scenario 4: CFG split on branch target.
	Describe("a branch targeting the middle of an existing block", func() {
		It("splits the block at the target instruction", func() {
			i0 := addInstruction(0, 1, 0, 0)
			i1 := addInstruction(4, 2, 0, 0)
			i2 := addInstruction(8, 3, 0, 0)
			i3 := branchInstruction(12, 4)

			g := cfg.Build(mustProgram([]arm.Instruction{i0, i1, i2, i3}))

			var upper, lower, branch *cfg.Node
			for _, n := range g.Nodes {
				if n == nil || n.Kind != cfg.Block {
					continue
				}
				switch {
				case len(n.Instructions) == 1 && n.Instructions[0].Address == 0:
					upper = n
				case len(n.Instructions) == 2 && n.Instructions[0].Address == 4:
					lower = n
				case len(n.Instructions) == 1 && n.Instructions[0].Address == 12:
					branch = n
				}
			}

			Expect(upper).NotTo(BeNil(), "expected an upper block containing only the first ADD")
			Expect(lower).NotTo(BeNil(), "expected a lower block containing both remaining ADDs")
			Expect(branch).NotTo(BeNil(), "expected a singleton block for the branch")

			Expect(g.HasEdge(upper.Index, lower.Index)).To(BeTrue())
			Expect(g.HasEdge(branch.Index, lower.Index)).To(BeTrue())
		})
	})

	Describe("undefined instructions", func() {
		It("are skipped and do not break the surrounding block", func() {
			i0 := addInstruction(0, 1, 0, 0)
			undefined := arm.Decode(0xE7000010, 4) // register-offset load/store with bit4 set: reserved/undefined
			i2 := addInstruction(8, 2, 0, 0)

			g := cfg.Build(mustProgram([]arm.Instruction{i0, undefined, i2}))

			total := 0
			for _, n := range g.Nodes {
				if n != nil && n.Kind == cfg.Block {
					total += len(n.Instructions)
				}
			}
			Expect(total).To(Equal(2), "the undefined instruction must not occupy a BLOCK")
		})
	})

	Describe("every BLOCK", func() {
		It("carries a single uniform conditional across its instructions", func() {
			i0 := addInstruction(0, 1, 0, 0)
			i1 := addInstruction(4, 2, 0, 0)

			g := cfg.Build(mustProgram([]arm.Instruction{i0, i1}))

			for _, n := range g.Nodes {
				if n == nil || n.Kind != cfg.Block {
					continue
				}
				cond := n.Instructions[0].Conditional
				for _, inst := range n.Instructions {
					Expect(inst.Conditional).To(Equal(cond))
				}
			}
		})
	})

	Describe("termination", func() {
		It("keeps END reachable from ROOT", func() {
			i0 := addInstruction(0, 1, 0, 0)
			i1 := addInstruction(4, 2, 0, 0)
			g := cfg.Build(mustProgram([]arm.Instruction{i0, i1}))

			var root, end *cfg.Node
			for _, n := range g.Nodes {
				if n == nil {
					continue
				}
				if n.Kind == cfg.Root {
					root = n
				}
				if n.Kind == cfg.End {
					end = n
				}
			}
			Expect(root).NotTo(BeNil())
			Expect(end).NotTo(BeNil())
			Expect(reachable(g, root.Index, end.Index)).To(BeTrue())
		})
	})

	Describe("RemoveConditionals", func() {
		It("short-circuits a COND node, connecting its predecessors directly to its successors", func() {
			i0 := addInstruction(0, 1, 0, 0) // ALWAYS
			cond := arm.Decode(0x00800001, 4) // EQ-conditioned ADD: cond bits 0000
			i2 := addInstruction(8, 3, 0, 0)  // back to ALWAYS

			g := cfg.Build(mustProgram([]arm.Instruction{i0, cond, i2}))

			var condNode *cfg.Node
			for _, n := range g.Nodes {
				if n != nil && n.Kind == cfg.Cond {
					condNode = n
				}
			}
			Expect(condNode).NotTo(BeNil())
			preds := g.Predecessors(condNode.Index)
			succs := g.Successors(condNode.Index)

			g.RemoveConditionals()

			for _, p := range preds {
				for _, s := range succs {
					Expect(g.HasEdge(p, s)).To(BeTrue())
				}
			}
		})
	})
})

func reachable(g *cfg.Graph, from, to int) bool {
	seen := map[int]bool{}
	var visit func(int) bool
	visit = func(n int) bool {
		if n == to {
			return true
		}
		if seen[n] {
			return false
		}
		seen[n] = true
		for _, s := range g.Successors(n) {
			if visit(s) {
				return true
			}
		}
		return false
	}
	return visit(from)
}
