package compiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patchvm/src/bytecode"
	"patchvm/src/patch"
	"patchvm/src/registry"
)

const testDescriptor = `{
  "modules": [
    {"name": "audio_out", "id": 1, "info": {"inputs": ["L", "R"], "outputs": []}},
    {"name": "sine_gen", "id": 256, "info": {"inputs": ["freq"], "outputs": ["out"]}},
    {"name": "add", "id": 1024, "info": {"inputs": ["in1", "in2"], "outputs": ["out"]}},
    {"name": "gain", "id": 1027, "info": {"inputs": ["in", "gain"], "outputs": ["out"]}},
    {"name": "float", "id": 1028, "info": {"inputs": ["in"], "outputs": ["out"]}},
    {"name": "int", "id": 1029, "info": {"inputs": ["in"], "outputs": ["out"]}}
  ]
}`

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Parse([]byte(testDescriptor))
	require.NoError(t, err)
	return reg
}

func tonePatch() *patch.Graph {
	return &patch.Graph{
		Nodes: []patch.Node{
			{ID: 1, Name: "sine_gen", Constants: []patch.ConstantInput{{Port: "freq", Value: 440}}},
			{ID: 2, Name: "gain", Constants: []patch.ConstantInput{{Port: "gain", Value: 0.5}}},
			{ID: 3, Name: "audio_out"},
		},
		Connections: []patch.Connection{
			{FromNode: 1, FromPort: "out", ToNode: 2, ToPort: "in"},
			{FromNode: 2, FromPort: "out", ToNode: 3, ToPort: "L"},
			{FromNode: 2, FromPort: "out", ToNode: 3, ToPort: "R"},
		},
	}
}

func TestCompileTonePatch(t *testing.T) {
	program, err := Compile(tonePatch(), testRegistry(t))
	require.NoError(t, err)

	want := []uint32{
		uint32(bytecode.OpLoadK), 0, math.Float32bits(440),
		uint32(bytecode.OpProc), 1, 256, 1, 1, 0, 1,
		uint32(bytecode.OpLoadK), 2, math.Float32bits(0.5),
		uint32(bytecode.OpProc), 2, 1027, 2, 1, 1, 2, 3,
		uint32(bytecode.OpAudioOut), 2, 3, 3,
		uint32(bytecode.OpEnd),
	}
	header, err := bytecode.ParseHeader(program)
	require.NoError(t, err)
	assert.Equal(t, uint32(bytecode.HeaderWords+len(want)), header.ProgramWords)
	assert.Equal(t, uint32(4), header.NumRegisters)
	assert.Equal(t, want, program[bytecode.HeaderWords:])
}

func TestCompileIsDeterministic(t *testing.T) {
	reg := testRegistry(t)
	a, err := Compile(tonePatch(), reg)
	require.NoError(t, err)
	b, err := Compile(tonePatch(), reg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompileTieBreaksByNodeID(t *testing.T) {
	// two independent sources feeding one add: both ready at once, so the
	// smaller node ID must be compiled first regardless of declaration order
	g := &patch.Graph{
		Nodes: []patch.Node{
			{ID: 7, Name: "float", Constants: []patch.ConstantInput{{Port: "in", Value: 2}}},
			{ID: 3, Name: "float", Constants: []patch.ConstantInput{{Port: "in", Value: 1}}},
			{ID: 9, Name: "add"},
		},
		Connections: []patch.Connection{
			{FromNode: 3, FromPort: "out", ToNode: 9, ToPort: "in1"},
			{FromNode: 7, FromPort: "out", ToNode: 9, ToPort: "in2"},
		},
	}
	program, err := Compile(g, testRegistry(t))
	require.NoError(t, err)

	// first PROC emitted must belong to node 3
	var firstProcNode uint32
	for pc := bytecode.HeaderWords; pc < len(program); {
		op := bytecode.Opcode(program[pc])
		if op == bytecode.OpProc {
			firstProcNode = program[pc+1]
			break
		}
		pc += 3 // only LOAD_K precedes the first PROC here
	}
	assert.Equal(t, uint32(3), firstProcNode)
}

func TestCompileCycleDetected(t *testing.T) {
	g := &patch.Graph{
		Nodes: []patch.Node{
			{ID: 1, Name: "add"},
			{ID: 2, Name: "add"},
		},
		Connections: []patch.Connection{
			{FromNode: 1, FromPort: "out", ToNode: 2, ToPort: "in1"},
			{FromNode: 2, FromPort: "out", ToNode: 1, ToPort: "in1"},
		},
	}
	_, err := Compile(g, testRegistry(t))
	require.ErrorIs(t, err, ErrCycleDetected)
}

func TestCompileUnknownModule(t *testing.T) {
	g := &patch.Graph{Nodes: []patch.Node{{ID: 1, Name: "does_not_exist"}}}
	_, err := Compile(g, testRegistry(t))
	require.ErrorIs(t, err, registry.ErrUnknownModule)
}

func TestCompileUnconnectedRequiredInput(t *testing.T) {
	g := &patch.Graph{
		Nodes: []patch.Node{
			{ID: 1, Name: "float", Constants: []patch.ConstantInput{{Port: "in", Value: 1}}},
			{ID: 2, Name: "add"},
		},
		Connections: []patch.Connection{
			{FromNode: 1, FromPort: "out", ToNode: 2, ToPort: "in1"},
		},
	}
	_, err := Compile(g, testRegistry(t))
	require.ErrorIs(t, err, ErrUnconnectedInput)
	assert.ErrorContains(t, err, "in2")
}

func TestCompileOptionalInputGetsNullReg(t *testing.T) {
	g := &patch.Graph{Nodes: []patch.Node{{ID: 1, Name: "float"}}}
	program, err := Compile(g, testRegistry(t))
	require.NoError(t, err)
	want := []uint32{
		uint32(bytecode.OpProc), 1, 1028, 1, 1, bytecode.NullReg, 0,
		uint32(bytecode.OpEnd),
	}
	assert.Equal(t, want, program[bytecode.HeaderWords:])
}

func TestCompileUnknownConnectionEndpoint(t *testing.T) {
	g := &patch.Graph{
		Nodes: []patch.Node{{ID: 1, Name: "float"}},
		Connections: []patch.Connection{
			{FromNode: 42, FromPort: "out", ToNode: 1, ToPort: "in"},
		},
	}
	_, err := Compile(g, testRegistry(t))
	require.Error(t, err)
}

func TestTopologicalSortEmitsEachNodeOnce(t *testing.T) {
	g := tonePatch()
	sorted, err := topologicalSort(g)
	require.NoError(t, err)
	require.Len(t, sorted, len(g.Nodes))
	seen := map[uint32]bool{}
	position := map[uint32]int{}
	for i, id := range sorted {
		assert.False(t, seen[id], "node %d emitted twice", id)
		seen[id] = true
		position[id] = i
	}
	for _, c := range g.Connections {
		assert.Less(t, position[c.FromNode], position[c.ToNode],
			"producer %d must precede consumer %d", c.FromNode, c.ToNode)
	}
}
