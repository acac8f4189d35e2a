package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Node is one drawable overlay element. Class and ID feed selector matching;
// position and size come from the matched style. A node with text draws it
// line by line; a node without text is a plain panel.
type Node struct {
	Class  string // matched by ".class"
	ID     string // matched by "#id"
	Bounds rl.Rectangle
	Text   string
}

// NewPanel returns a text-less node matched by ".class".
func NewPanel(class string) *Node {
	return &Node{Class: class}
}

// NewLabel returns a text node matched by ".class".
func NewLabel(class, text string) *Node {
	return &Node{Class: class, Text: text}
}

// matches reports whether a ".class" or "#id" selector hits this node.
func (n *Node) matches(sel string) bool {
	if len(sel) < 2 {
		return false
	}
	switch sel[0] {
	case '.':
		return n.Class == sel[1:]
	case '#':
		return n.ID == sel[1:]
	}
	return false
}
