package patch

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrInvalidConnectionString is returned for a connection endpoint that is
// not of the form "<node_id>:<port_name>".
var ErrInvalidConnectionString = errors.New("invalid connection string")

type patchJSON struct {
	Modules     []moduleJSON     `json:"modules"`
	Connections []connectionJSON `json:"connections"`
}

type moduleJSON struct {
	ID   uint32             `json:"id"`
	Name string             `json:"name"`
	Data map[string]float64 `json:"data"`
}

type connectionJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Parse turns UTF-8 patch text into a Graph. Unknown top-level keys are
// ignored; absent "modules"/"connections" arrays yield an empty graph.
// Constant inputs are emitted in port-name order so that the same text
// always produces the same Graph.
func Parse(text []byte) (*Graph, error) {
	var p patchJSON
	if err := json.Unmarshal(text, &p); err != nil {
		return nil, fmt.Errorf("failed to parse patch: %w", err)
	}
	g := &Graph{}
	for _, m := range p.Modules {
		node := Node{ID: m.ID, Name: m.Name}
		if len(m.Data) > 0 {
			ports := make([]string, 0, len(m.Data))
			for port := range m.Data {
				ports = append(ports, port)
			}
			sort.Strings(ports)
			node.Constants = make([]ConstantInput, 0, len(ports))
			for _, port := range ports {
				node.Constants = append(node.Constants, ConstantInput{
					Port:  port,
					Value: float32(m.Data[port]),
				})
			}
		}
		g.Nodes = append(g.Nodes, node)
	}
	for _, c := range p.Connections {
		fromNode, fromPort, err := parseEndpoint(c.From)
		if err != nil {
			return nil, err
		}
		toNode, toPort, err := parseEndpoint(c.To)
		if err != nil {
			return nil, err
		}
		g.Connections = append(g.Connections, Connection{
			FromNode: fromNode,
			FromPort: fromPort,
			ToNode:   toNode,
			ToPort:   toPort,
		})
	}
	return g, nil
}

// parseEndpoint splits "<node_id>:<port_name>".
func parseEndpoint(s string) (uint32, string, error) {
	idStr, port, ok := strings.Cut(s, ":")
	if !ok || port == "" {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidConnectionString, s)
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidConnectionString, s)
	}
	return uint32(id), port, nil
}
