package panel

import (
	"encoding/json"
	"regexp"
	"strings"
)

// MindmapKeyword must open every per-expert mindmap.
const MindmapKeyword = "mindmap"

var fencedMindmap = regexp.MustCompile("(?i)```mermaid\\s*([\\s\\S]*?)```")

// ExtractMindmap locates the fenced block, trims it and requires it to start
// with MindmapKeyword. ok is false for missing or invalid mindmaps.
func ExtractMindmap(response string) (code string, ok bool) {
	m := fencedMindmap.FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	code = strings.TrimSpace(m[1])
	if !strings.HasPrefix(code, MindmapKeyword) {
		return "", false
	}
	return code, true
}

// Node is one node of the cumulative mindmap tree.
type Node struct {
	ID       string  `json:"id"`
	Topic    string  `json:"topic"`
	Children []*Node `json:"children,omitempty"`
}

// NodeTree is the cumulative mindmap across all experts.
type NodeTree struct {
	Meta struct {
		Name    string `json:"name"`
		Author  string `json:"author"`
		Version string `json:"version"`
	} `json:"meta"`
	Format string `json:"format"`
	Data   Node   `json:"data"`
}

// ParseNodeTree validates a cumulative mindmap document.
func ParseNodeTree(raw string) (*NodeTree, bool) {
	var t NodeTree
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &t); err != nil {
		return nil, false
	}
	if t.Format != "node_tree" || strings.TrimSpace(t.Data.Topic) == "" {
		return nil, false
	}
	return &t, true
}
