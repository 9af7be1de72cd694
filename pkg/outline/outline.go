// Package outline renders an owner's tree as indented text.
package outline

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/paduck86/distillai/pkg/models"
)

// previewLen is the number of runes of block text shown per line.
const previewLen = 48

var markers = map[models.NodeKind]string{
	models.NodeKindFolder: "+",
	models.NodeKindPage:   "#",
	models.NodeKindBlock:  "-",
}

// Render writes one line per node, indented two spaces per level.
//
// nodes must be in depth-first order as returned by ListTree. A node whose
// parent is not in nodes is rendered at the top level.
func Render(w io.Writer, nodes []*models.Node) error {
	bw := bufio.NewWriter(w)
	depth := make(map[models.NodeID]int, len(nodes))

	for _, n := range nodes {
		d := 0
		if n.ParentID != nil {
			if pd, ok := depth[*n.ParentID]; ok {
				d = pd + 1
			}
		}
		depth[n.ID] = d

		bw.WriteString(strings.Repeat("  ", d))
		marker, ok := markers[n.Kind]
		if !ok {
			marker = "?"
		}
		bw.WriteString(marker)
		bw.WriteByte(' ')
		bw.WriteString(label(n))
		if n.IsSynced() {
			bw.WriteString(" [synced]")
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func label(n *models.Node) string {
	if n.Kind != models.NodeKindBlock {
		if n.Title == "" {
			return "(untitled)"
		}
		return n.Title
	}

	text := n.Title
	if text == "" {
		text = contentText(n.Content)
	}
	if text == "" {
		return "(empty)"
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + " ..."
	}
	if r := []rune(text); len(r) > previewLen {
		text = string(r[:previewLen]) + "..."
	}
	return text
}

// contentText extracts the "text" field of a block's content, if any.
func contentText(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Text)
}
