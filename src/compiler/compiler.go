// Package compiler lowers a patch graph to VM bytecode: topological sort,
// register allocation, instruction emission, header stamping. Compilation
// is deterministic: the same graph always produces byte-identical output.
package compiler

import (
	"errors"
	"fmt"

	"patchvm/src/bytecode"
	"patchvm/src/dsp"
	"patchvm/src/patch"
	"patchvm/src/registry"
)

// ErrCycleDetected is returned when the patch graph is not acyclic.
var ErrCycleDetected = errors.New("graph contains a cycle")

// ErrUnconnectedInput is returned when a required input port is neither
// connected nor constant-bound.
var ErrUnconnectedInput = errors.New("unconnected required input")

type portKey struct {
	nodeID uint32
	port   string
}

// Compile emits a complete program (header included) for the given graph.
func Compile(g *patch.Graph, reg *registry.Registry) ([]uint32, error) {
	if err := checkEndpoints(g); err != nil {
		return nil, err
	}
	sorted, err := topologicalSort(g)
	if err != nil {
		return nil, err
	}

	var instructions []uint32
	outputRegs := make(map[portKey]uint32)
	nextReg := uint32(0)

	for _, nodeID := range sorted {
		node := g.NodeByID(nodeID)
		moduleID, err := reg.IDOf(node.Name)
		if err != nil {
			return nil, err
		}
		info, err := reg.InfoOf(node.Name)
		if err != nil {
			return nil, err
		}

		// constants first: one fresh register per constant-bound port
		constantRegs := make(map[string]uint32, len(node.Constants))
		for _, c := range node.Constants {
			r := nextReg
			nextReg++
			constantRegs[c.Port] = r
			instructions = append(instructions,
				uint32(bytecode.OpLoadK), r, bytecode.FloatBits(c.Value))
		}

		// input registers in the registry's declared port order
		inRegs := make([]uint32, 0, len(info.Inputs))
		for _, port := range info.Inputs {
			if r, ok := constantRegs[port]; ok {
				inRegs = append(inRegs, r)
				continue
			}
			if conn := findConnection(g, node.ID, port); conn != nil {
				src, ok := outputRegs[portKey{conn.FromNode, conn.FromPort}]
				if !ok {
					return nil, fmt.Errorf("connection from %d:%s names an undeclared output port",
						conn.FromNode, conn.FromPort)
				}
				inRegs = append(inRegs, src)
				continue
			}
			inRegs = append(inRegs, bytecode.NullReg)
		}
		for _, idx := range dsp.RequiredInputs(moduleID) {
			if idx < len(inRegs) && inRegs[idx] == bytecode.NullReg {
				return nil, fmt.Errorf("%w: node %d (%s) port %q",
					ErrUnconnectedInput, node.ID, node.Name, info.Inputs[idx])
			}
		}

		// the sink is delivered through AUDIO_OUT, never through PROC
		if moduleID == dsp.ModAudioOut {
			instructions = append(instructions, uint32(bytecode.OpAudioOut), uint32(len(inRegs)))
			instructions = append(instructions, inRegs...)
			continue
		}

		outRegs := make([]uint32, 0, len(info.Outputs))
		for _, port := range info.Outputs {
			r := nextReg
			nextReg++
			outRegs = append(outRegs, r)
			outputRegs[portKey{node.ID, port}] = r
		}

		instructions = append(instructions,
			uint32(bytecode.OpProc), node.ID, moduleID,
			uint32(len(inRegs)), uint32(len(outRegs)))
		instructions = append(instructions, inRegs...)
		instructions = append(instructions, outRegs...)
	}

	instructions = append(instructions, uint32(bytecode.OpEnd))

	header := bytecode.Header{
		Magic:        bytecode.Magic,
		Version:      bytecode.Version,
		ProgramWords: uint32(bytecode.HeaderWords + len(instructions)),
		NumRegisters: nextReg,
	}
	program := make([]uint32, 0, header.ProgramWords)
	hw := header.Words()
	program = append(program, hw[:]...)
	program = append(program, instructions...)
	return program, nil
}

// topologicalSort orders nodes with Kahn's algorithm. When several nodes are
// ready at once the smallest node ID goes first, which is what makes the
// emitted bytecode reproducible.
func topologicalSort(g *patch.Graph) ([]uint32, error) {
	inDegree := make(map[uint32]int, len(g.Nodes))
	adj := make(map[uint32][]uint32, len(g.Nodes))
	for _, n := range g.Nodes {
		inDegree[n.ID] = 0
	}
	for _, c := range g.Connections {
		adj[c.FromNode] = append(adj[c.FromNode], c.ToNode)
		inDegree[c.ToNode]++
	}

	var ready []uint32
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}

	sorted := make([]uint32, 0, len(g.Nodes))
	for len(ready) > 0 {
		// take the smallest ready node
		minIdx := 0
		for i := 1; i < len(ready); i++ {
			if ready[i] < ready[minIdx] {
				minIdx = i
			}
		}
		u := ready[minIdx]
		ready = append(ready[:minIdx], ready[minIdx+1:]...)
		sorted = append(sorted, u)
		for _, v := range adj[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				ready = append(ready, v)
			}
		}
	}

	if len(sorted) < len(g.Nodes) {
		return nil, ErrCycleDetected
	}
	return sorted, nil
}

func checkEndpoints(g *patch.Graph) error {
	for _, c := range g.Connections {
		if g.NodeByID(c.FromNode) == nil {
			return fmt.Errorf("connection references unknown node %d", c.FromNode)
		}
		if g.NodeByID(c.ToNode) == nil {
			return fmt.Errorf("connection references unknown node %d", c.ToNode)
		}
	}
	return nil
}

func findConnection(g *patch.Graph, toNode uint32, toPort string) *patch.Connection {
	for i := range g.Connections {
		c := &g.Connections[i]
		if c.ToNode == toNode && c.ToPort == toPort {
			return c
		}
	}
	return nil
}
