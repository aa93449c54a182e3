package xquery

import (
	"fmt"

	"github.com/beevik/etree"
)

// Update is an update expression: it inspects a tree and reports the changes
// it would make, without making them.
type Update interface {
	Pending(doc *etree.Document) ([]Change, error)
}

// UpdateFunc adapts a plain function to Update.
type UpdateFunc func(doc *etree.Document) ([]Change, error)

func (f UpdateFunc) Pending(doc *etree.Document) ([]Change, error) {
	return f(doc)
}

// Change is one entry of a pending change list.
type Change interface {
	Target() *etree.Element
	String() string
	apply() error
}

// ReplaceAttr replaces the value of an attribute ("replace value of node @attr").
type ReplaceAttr struct {
	Element *etree.Element
	Key     string
	Value   string
}

func (c ReplaceAttr) Target() *etree.Element { return c.Element }

func (c ReplaceAttr) String() string {
	return fmt.Sprintf("set @%s=%q on %s", c.Key, c.Value, c.Element.GetPath())
}

func (c ReplaceAttr) apply() error {
	c.Element.CreateAttr(c.Key, c.Value)
	return nil
}

// ReplaceWithText replaces an element with a text node ("replace node").
type ReplaceWithText struct {
	Element *etree.Element
	Text    string
}

func (c ReplaceWithText) Target() *etree.Element { return c.Element }

func (c ReplaceWithText) String() string {
	return fmt.Sprintf("replace %s with %q", c.Element.GetPath(), c.Text)
}

func (c ReplaceWithText) apply() error {
	parent := c.Element.Parent()
	if parent == nil {
		return fmt.Errorf("cannot replace detached element <%s>", c.Element.Tag)
	}
	index := c.Element.Index()
	parent.RemoveChildAt(index)
	parent.InsertChildAt(index, etree.NewText(c.Text))
	return nil
}

// ReplaceContent replaces everything inside an element with text
// ("replace value of node").
type ReplaceContent struct {
	Element *etree.Element
	Text    string
}

func (c ReplaceContent) Target() *etree.Element { return c.Element }

func (c ReplaceContent) String() string {
	return fmt.Sprintf("set content of %s to %q", c.Element.GetPath(), c.Text)
}

func (c ReplaceContent) apply() error {
	for len(c.Element.Child) > 0 {
		c.Element.RemoveChildAt(0)
	}
	if c.Text != "" {
		c.Element.AddChild(etree.NewText(c.Text))
	}
	return nil
}

// PendingList is the result of evaluating an update expression.
type PendingList struct {
	changes []Change
}

// Len returns the number of pending changes.
func (l *PendingList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.changes)
}

// Changes returns the pending changes in document order.
func (l *PendingList) Changes() []Change {
	if l == nil {
		return nil
	}
	out := make([]Change, len(l.changes))
	copy(out, l.changes)
	return out
}

// Apply executes every pending change.
func (l *PendingList) Apply() error {
	if l == nil {
		return nil
	}
	for _, change := range l.changes {
		if err := change.apply(); err != nil {
			return err
		}
	}
	return nil
}
