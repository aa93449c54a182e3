package xquery

import (
	"strings"

	"github.com/beevik/etree"
)

// Walk visits root and its descendant elements in document order. When visit
// returns false the children of that element are not visited.
func Walk(root *etree.Element, visit func(el *etree.Element) bool) {
	if root == nil {
		return
	}
	stack := []*etree.Element{root}
	for len(stack) > 0 {
		el := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(el) {
			continue
		}
		children := el.ChildElements()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Select returns every element below (and including) root that matches, in
// document order.
func Select(root *etree.Element, match func(el *etree.Element) bool) []*etree.Element {
	var out []*etree.Element
	Walk(root, func(el *etree.Element) bool {
		if match(el) {
			out = append(out, el)
		}
		return true
	})
	return out
}

// ByTag matches elements whose local name is one of tags.
func ByTag(tags ...string) func(el *etree.Element) bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		set[tag] = true
	}
	return func(el *etree.Element) bool {
		return set[el.Tag]
	}
}

// ElementByID returns the first element in document order whose id attribute
// equals id.
func ElementByID(root *etree.Element, id string) *etree.Element {
	var found *etree.Element
	Walk(root, func(el *etree.Element) bool {
		if found != nil {
			return false
		}
		if el.SelectAttrValue("id", "") == id {
			found = el
			return false
		}
		return true
	})
	return found
}

// ChildElement returns the first direct child element named tag.
func ChildElement(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

// StringValue concatenates every text node below el, the way string(.) does.
func StringValue(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	stack := []etree.Token{el}
	for len(stack) > 0 {
		tok := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			for i := len(t.Child) - 1; i >= 0; i-- {
				stack = append(stack, t.Child[i])
			}
		}
	}
	return b.String()
}

// Attached reports whether el is still part of doc.
func Attached(doc *etree.Document, el *etree.Element) bool {
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur == &doc.Element {
			return true
		}
	}
	return false
}
