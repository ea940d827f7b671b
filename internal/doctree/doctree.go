package doctree

import "strings"

// DocTree is the root of a parsed source document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page/line (0 if N/A)
	Children []*DocNode // Subsections
}

// Chunk is a contiguous slice of a document, ready for the map stage.
// Start and End are rune offsets into the source document.
type Chunk struct {
	Text  string
	Index int // 0-based ordinal
	Total int // number of chunks the document was split into
	Start int
	End   int
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// PlainText flattens the tree into the single string that gets summarized.
// Section titles and text blocks are separated by blank lines, in document order.
func (t *DocTree) PlainText() string {
	if t == nil {
		return ""
	}
	var blocks []string
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if title := strings.TrimSpace(n.Title); title != "" {
				blocks = append(blocks, title)
			}
			if text := strings.TrimSpace(n.Text); text != "" {
				blocks = append(blocks, text)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return strings.Join(blocks, "\n\n")
}

// Outline builds a DocTree from a flat stream of headings and text blocks,
// nesting each heading under the nearest preceding heading of a lower level.
type Outline struct {
	root  *DocNode
	stack []outlineEntry
	text  strings.Builder
}

type outlineEntry struct {
	node  *DocNode
	level int
}

// NewOutline starts an outline whose root carries the document title.
func NewOutline(title string) *Outline {
	root := &DocNode{Title: title}
	return &Outline{
		root:  root,
		stack: []outlineEntry{{node: root, level: 0}},
	}
}

// Heading opens a new section at the given level (1 = top).
func (o *Outline) Heading(level int, title string) {
	o.flush()
	node := &DocNode{Title: title}
	for len(o.stack) > 1 && o.stack[len(o.stack)-1].level >= level {
		o.stack = o.stack[:len(o.stack)-1]
	}
	parent := o.stack[len(o.stack)-1].node
	parent.Children = append(parent.Children, node)
	o.stack = append(o.stack, outlineEntry{node: node, level: level})
}

// Text appends a paragraph to the currently open section.
func (o *Outline) Text(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if o.text.Len() > 0 {
		o.text.WriteString("\n\n")
	}
	o.text.WriteString(t)
}

func (o *Outline) flush() {
	t := strings.TrimSpace(o.text.String())
	o.text.Reset()
	if t == "" {
		return
	}
	top := o.stack[len(o.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// Tree finishes the outline. Text that precedes the first heading becomes a
// leading untitled child.
func (o *Outline) Tree() *DocTree {
	o.flush()
	tree := &DocTree{Title: o.root.Title}
	if o.root.Text != "" {
		tree.Children = append(tree.Children, &DocNode{Text: o.root.Text})
	}
	tree.Children = append(tree.Children, o.root.Children...)
	return tree
}
