package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatch(t *testing.T) {
	text := `{
		"modules": [
			{"id": 1, "name": "sine_gen", "data": {"freq": 440.0}},
			{"id": 2, "name": "audio_out"}
		],
		"connections": [
			{"from": "1:out", "to": "2:L"}
		]
	}`
	g, err := Parse([]byte(text))
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, uint32(1), g.Nodes[0].ID)
	assert.Equal(t, "sine_gen", g.Nodes[0].Name)
	require.Len(t, g.Nodes[0].Constants, 1)
	assert.Equal(t, ConstantInput{Port: "freq", Value: 440}, g.Nodes[0].Constants[0])

	require.Len(t, g.Connections, 1)
	assert.Equal(t, Connection{FromNode: 1, FromPort: "out", ToNode: 2, ToPort: "L"}, g.Connections[0])
}

func TestParseEmptyObject(t *testing.T) {
	g, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Connections)
}

func TestParseIgnoresUnknownKeys(t *testing.T) {
	g, err := Parse([]byte(`{"modules": [], "connections": [], "metadata": {"author": "someone"}}`))
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
}

func TestParseConstantsAreOrdered(t *testing.T) {
	text := `{"modules": [{"id": 1, "name": "adsr", "data": {"sustain": 0.5, "attack_s": 0.01, "decay_s": 0.2}}]}`
	a, err := Parse([]byte(text))
	require.NoError(t, err)
	b, err := Parse([]byte(text))
	require.NoError(t, err)
	assert.Equal(t, a.Nodes[0].Constants, b.Nodes[0].Constants)

	ports := make([]string, len(a.Nodes[0].Constants))
	for i, c := range a.Nodes[0].Constants {
		ports[i] = c.Port
	}
	assert.Equal(t, []string{"attack_s", "decay_s", "sustain"}, ports)
}

func TestParseMalformedConnectionStrings(t *testing.T) {
	cases := []string{
		`{"connections": [{"from": "1out", "to": "2:L"}]}`,   // missing colon
		`{"connections": [{"from": "x:out", "to": "2:L"}]}`,  // non-numeric id
		`{"connections": [{"from": "1:out", "to": "2:"}]}`,   // empty port
		`{"connections": [{"from": "1:out", "to": "left"}]}`, // no separator
	}
	for _, text := range cases {
		_, err := Parse([]byte(text))
		assert.ErrorIs(t, err, ErrInvalidConnectionString, "input: %s", text)
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"modules": [`))
	require.Error(t, err)
}

func TestNodeByID(t *testing.T) {
	g := &Graph{Nodes: []Node{{ID: 5, Name: "add"}}}
	require.NotNil(t, g.NodeByID(5))
	assert.Nil(t, g.NodeByID(6))
}
