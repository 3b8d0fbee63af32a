package extract

import (
	"encoding/xml"
	"io"
	"strings"
)

// node is a minimal in-memory element tree. encoding/xml does not link
// children to parents, so Extract builds an explicit parent map in one
// upfront pass instead of re-walking the tree per element.
type node struct {
	name     string
	text     string
	children []*node
}

// Extract parses an EMIS clinical-search XML export and returns one
// GuidOccurrence per <value> element, annotated with its enclosing
// value-set metadata, table/column context, and source search/report.
// The only error is a *ParseError for malformed input; a document without
// value-sets yields an empty slice.
func Extract(xmlText string) ([]GuidOccurrence, error) {
	root, err := parse(xmlText)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	parents := make(map[*node]*node)
	buildParentMap(root, parents)

	var occurrences []GuidOccurrence
	for _, vs := range findAll(root, "valueSet") {
		occurrences = append(occurrences, extractValueSet(vs, parents)...)
	}
	return occurrences, nil
}

func extractValueSet(vs *node, parents map[*node]*node) []GuidOccurrence {
	vsID := childText(vs, "id")
	vsDesc := childText(vs, "description")
	vsSystem := childText(vs, "codeSystem")

	tableContext, columnContext := resolveContext(vs, parents)
	sourceGUID, sourceName := resolveSource(vs, parents)

	var occurrences []GuidOccurrence
	for _, values := range findAll(vs, "values") {
		includeChildren := strings.EqualFold(childText(values, "includeChildren"), "true")
		isRefset := strings.EqualFold(childText(values, "isRefset"), "true")

		for _, value := range directChildren(values, "value") {
			display := ""
			if isRefset {
				// Refset members carry no display element; the value-set
				// description is the only human label available.
				display = vsDesc
			} else {
				display = childText(value, "displayName")
				if display == "" {
					display = childText(values, "displayName")
				}
			}

			occurrences = append(occurrences, GuidOccurrence{
				ValueSetGUID:        vsID,
				ValueSetDescription: vsDesc,
				CodeSystem:          vsSystem,
				EmisGUID:            strings.TrimSpace(value.text),
				DisplayName:         display,
				IncludeChildren:     includeChildren,
				IsRefset:            isRefset,
				TableContext:        tableContext,
				ColumnContext:       columnContext,
				SourceGUID:          sourceGUID,
				SourceName:          sourceName,
			})
		}
	}
	return occurrences
}

// resolveContext finds the table/column location for a value-set: first
// within the value-set itself, then from the nearest enclosing criterion.
// EMIS places context inconsistently between pseudo-refsets and plain codes.
func resolveContext(vs *node, parents map[*node]*node) (string, string) {
	table := findFirst(vs, "table")
	column := findFirst(vs, "column")

	if table == nil || column == nil {
		if criterion := nearestAncestor(vs, parents, "criterion"); criterion != nil {
			if table == nil {
				table = directChild(criterion, "table")
			}
			if column == nil {
				column = findFirstExcluding(criterion, "column", vs)
			}
		}
	}

	return nodeText(table), nodeText(column)
}

// resolveSource walks up to the nearest enclosing report or search element
// and reads its id/name, giving each occurrence its provenance.
func resolveSource(vs *node, parents map[*node]*node) (string, string) {
	for n := parents[vs]; n != nil; n = parents[n] {
		if n.name == "report" || n.name == "search" {
			return childText(n, "id"), childText(n, "name")
		}
	}
	return "", ""
}

// parse decodes the document into a node tree. Elements are matched by
// local name: EMIS exports mix namespaced and non-namespaced elements in
// the same document, so namespace-qualified matching would miss half of
// them.
func parse(xmlText string) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(xmlText))

	root := &node{}
	stack := []*node{root}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local}
			top := stack[len(stack)-1]
			top.children = append(top.children, n)
			stack = append(stack, n)
		case xml.CharData:
			top := stack[len(stack)-1]
			top.text += string(t)
		case xml.EndElement:
			top := stack[len(stack)-1]
			top.text = strings.TrimSpace(top.text)
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) != 1 {
		// The decoder reports unbalanced documents itself; this is a guard
		// against truncated token streams.
		return nil, &xml.SyntaxError{Msg: "unexpected end of document"}
	}

	// The token loop accepts any token stream, including plain text and
	// concatenated documents. A well-formed document has exactly one root
	// element and no text outside it.
	if strings.TrimSpace(root.text) != "" {
		return nil, &xml.SyntaxError{Msg: "text outside of document root"}
	}
	if len(root.children) != 1 {
		return nil, &xml.SyntaxError{Msg: "document must have exactly one root element"}
	}
	return root, nil
}

func buildParentMap(n *node, parents map[*node]*node) {
	for _, c := range n.children {
		parents[c] = n
		buildParentMap(c, parents)
	}
}

// findAll returns every descendant with the given local name, in document
// order.
func findAll(n *node, name string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
		out = append(out, findAll(c, name)...)
	}
	return out
}

// findFirst returns the first descendant with the given local name.
func findFirst(n *node, name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
		if found := findFirst(c, name); found != nil {
			return found
		}
	}
	return nil
}

// findFirstExcluding is findFirst skipping one subtree, so a criterion-level
// search does not pick context back out of the value-set it is a fallback
// for.
func findFirstExcluding(n *node, name string, skip *node) *node {
	for _, c := range n.children {
		if c == skip {
			continue
		}
		if c.name == name {
			return c
		}
		if found := findFirstExcluding(c, name, skip); found != nil {
			return found
		}
	}
	return nil
}

func directChild(n *node, name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func directChildren(n *node, name string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func childText(n *node, name string) string {
	if c := directChild(n, name); c != nil {
		return c.text
	}
	return ""
}

func nodeText(n *node) string {
	if n == nil {
		return ""
	}
	return n.text
}

func nearestAncestor(n *node, parents map[*node]*node, name string) *node {
	for p := parents[n]; p != nil; p = parents[p] {
		if p.name == name {
			return p
		}
	}
	return nil
}
