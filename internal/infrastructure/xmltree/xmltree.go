// Package xmltree parses small XML documents into a generic element tree
// with strict lookup helpers.
//
// The gateway answers with loosely structured XML whose shape depends on
// device capabilities, so consumers walk the tree and ask for exactly the
// children and attributes they need. Every lookup fails with a
// *MissingError instead of returning a zero value.
package xmltree

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissing is matched by every *MissingError.
var ErrMissing = errors.New("xmltree: missing node")

// MissingError reports a required child or attribute that is absent.
type MissingError struct {
	Kind   string // "child" or "attribute"
	Name   string
	Parent string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("xmltree: element <%s> has no %s %q", e.Parent, e.Kind, e.Name)
}

// Is reports whether target is ErrMissing.
func (e *MissingError) Is(target error) bool {
	return target == ErrMissing
}

// Node is one XML element.
type Node struct {
	Name     string
	attrs    []xml.Attr
	text     strings.Builder
	children []*Node
}

// Parse reads one XML document and returns its root element.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)

	var (
		root  *Node
		stack []*Node
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmltree: parsing document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("xmltree: document has more than one root element")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("xmltree: document has no root element")
	}
	return root, nil
}

// Children returns the direct child elements in document order.
func (n *Node) Children() []*Node {
	return n.children
}

// Text returns the element's character data with surrounding whitespace
// trimmed.
func (n *Node) Text() string {
	return strings.TrimSpace(n.text.String())
}

// Child returns the first direct child element called name.
func (n *Node) Child(name string) (*Node, error) {
	for _, c := range n.children {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, &MissingError{Kind: "child", Name: name, Parent: n.Name}
}

// ChildText returns the text of the first direct child element called name.
func (n *Node) ChildText(name string) (string, error) {
	c, err := n.Child(name)
	if err != nil {
		return "", err
	}
	return c.Text(), nil
}

// Attr returns the value of the attribute called name.
func (n *Node) Attr(name string) (string, error) {
	for _, a := range n.attrs {
		if a.Name.Local == name {
			return a.Value, nil
		}
	}
	return "", &MissingError{Kind: "attribute", Name: name, Parent: n.Name}
}
