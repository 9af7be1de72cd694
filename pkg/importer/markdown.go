// Package importer turns documents into nodes of the knowledge tree.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gorm.io/datatypes"
)

// Block is the content stored in each imported block node.
type Block struct {
	Type     string `json:"type"`
	Level    int    `json:"level,omitempty"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

// NodeCreator is the part of store.Store the importer writes through.
type NodeCreator interface {
	CreateNode(ctx context.Context, owner models.UserID, in store.NewNode) (*models.Node, error)
}

// Result holds the created page and its blocks in document order.
type Result struct {
	Page   *models.Node   `json:"page"`
	Blocks []*models.Node `json:"blocks"`
}

// Markdown creates a page under parent with one block per top-level
// Markdown block. The page is titled after the first level one heading,
// which is not repeated as a block, or after the file name.
//
// Nodes are created one by one; if a block fails the page and the blocks
// created so far stay in place and the error is returned with them.
func Markdown(ctx context.Context, s NodeCreator, owner models.UserID, parent *models.NodeID, name string, src []byte) (*Result, error) {
	title, blocks := ParseMarkdown(name, src)

	page, err := s.CreateNode(ctx, owner, store.NewNode{
		ParentID: parent,
		Kind:     models.NodeKindPage,
		Title:    title,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Page: page}
	for i, b := range blocks {
		content, err := json.Marshal(b)
		if err != nil {
			return res, fmt.Errorf("block %d: %w", i, err)
		}
		n, err := s.CreateNode(ctx, owner, store.NewNode{
			ParentID: &page.ID,
			Kind:     models.NodeKindBlock,
			Content:  datatypes.JSON(content),
		})
		if err != nil {
			return res, err
		}
		res.Blocks = append(res.Blocks, n)
	}
	return res, nil
}

// ParseMarkdown returns the page title and the top-level blocks of src.
func ParseMarkdown(name string, src []byte) (string, []Block) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	title := ""
	var blocks []Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 && title == "" {
			title = inlineText(h, src)
			continue
		}
		if b, ok := toBlock(n, src); ok {
			blocks = append(blocks, b)
		}
	}

	if title == "" {
		base := filepath.Base(name)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return title, blocks
}

func toBlock(n ast.Node, src []byte) (Block, bool) {
	var b Block
	switch node := n.(type) {
	case *ast.Heading:
		b = Block{Type: "heading", Level: node.Level, Text: inlineText(node, src)}
	case *ast.Paragraph, *ast.TextBlock:
		b = Block{Type: "paragraph", Text: inlineText(node, src)}
	case *ast.List:
		var items []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			items = append(items, blockText(item, src))
		}
		kind := "bulleted_list"
		if node.IsOrdered() {
			kind = "numbered_list"
		}
		b = Block{Type: kind, Text: strings.Join(items, "\n")}
	case *ast.FencedCodeBlock:
		b = Block{Type: "code", Language: string(node.Language(src)), Text: rawLines(node, src)}
	case *ast.CodeBlock:
		b = Block{Type: "code", Text: rawLines(node, src)}
	case *ast.Blockquote:
		b = Block{Type: "quote", Text: blockText(node, src)}
	case *ast.ThematicBreak:
		return Block{Type: "divider"}, true
	case *ast.HTMLBlock:
		b = Block{Type: "html", Text: rawLines(node, src)}
	default:
		b = Block{Type: "paragraph", Text: blockText(node, src)}
	}
	return b, b.Text != ""
}

// blockText joins the text of the block children of n, one per line.
func blockText(n ast.Node, src []byte) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		var t string
		switch c.Type() {
		case ast.TypeBlock:
			if c.HasChildren() && c.FirstChild().Type() == ast.TypeBlock {
				t = blockText(c, src)
			} else if _, isCode := c.(*ast.FencedCodeBlock); isCode {
				t = rawLines(c, src)
			} else {
				t = inlineText(c, src)
			}
		default:
			t = inlineText(c, src)
		}
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// inlineText renders the inline children of n as plain text.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeInline(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

func writeInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.HardLineBreak() || node.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
		default:
			writeInline(buf, c, src)
		}
	}
}

func rawLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}
