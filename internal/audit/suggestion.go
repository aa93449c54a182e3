package audit

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/ditaref/ditaref/internal/refpath"
	"github.com/ditaref/ditaref/internal/xquery"
)

// Category is a kind of reference problem.
type Category int

const (
	DocumentNotFound Category = iota
	ElementNotFound
	DocumentNotInMap
	TextNotMatch
)

// Categories lists every category in check order.
var Categories = []Category{DocumentNotFound, ElementNotFound, DocumentNotInMap, TextNotMatch}

func (c Category) String() string {
	switch c {
	case DocumentNotFound:
		return "doc-not-found"
	case ElementNotFound:
		return "element-not-found"
	case DocumentNotInMap:
		return "doc-not-in-map"
	case TextNotMatch:
		return "text-not-match"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Reference is an outbound link of a referrer document.
type Reference struct {
	Referrer string
	Element  *etree.Element
	Href     string
	Target   string // resolved document key
	Fragment string
	Text     string
}

// Location returns the referrer key and the element path of the link.
func (r Reference) Location() string {
	if r.Element == nil {
		return r.Referrer
	}
	return fmt.Sprintf("%s %s", r.Referrer, r.Element.GetPath())
}

// Suggestion is a detected problem with one reference. It is one of
// *MissingDocument, *MissingElement, *UnmappedDocument or *TextMismatch.
type Suggestion interface {
	Category() Category
	Key() []string
	Ref() Reference
	sealed()
}

// MissingDocument: the target document could not be loaded.
type MissingDocument struct {
	Reference
	Reason     string
	Candidates []string // known documents with the same file name
}

// MissingElement: the fragment names an element the target does not have.
type MissingElement struct {
	Reference
	ElementID string
}

// UnmappedDocument: the target is not part of the root map's navigation.
type UnmappedDocument struct {
	Reference
}

// TextMismatch: the link text differs from the target title.
type TextMismatch struct {
	Reference
	Title string
}

func (s *MissingDocument) Category() Category  { return DocumentNotFound }
func (s *MissingElement) Category() Category   { return ElementNotFound }
func (s *UnmappedDocument) Category() Category { return DocumentNotInMap }
func (s *TextMismatch) Category() Category     { return TextNotMatch }

func (s *MissingDocument) Key() []string  { return []string{s.Target} }
func (s *MissingElement) Key() []string   { return []string{s.Target, s.ElementID} }
func (s *UnmappedDocument) Key() []string { return []string{s.Target} }
func (s *TextMismatch) Key() []string     { return []string{s.Target, s.Fragment, s.Text} }

func (s *MissingDocument) Ref() Reference  { return s.Reference }
func (s *MissingElement) Ref() Reference   { return s.Reference }
func (s *UnmappedDocument) Ref() Reference { return s.Reference }
func (s *TextMismatch) Ref() Reference     { return s.Reference }

func (*MissingDocument) sealed()  {}
func (*MissingElement) sealed()   {}
func (*UnmappedDocument) sealed() {}
func (*TextMismatch) sealed()     {}

// Remedy is one option offered for a suggestion. A nil Update means skip.
type Remedy struct {
	Label  string
	Update xquery.Update
}

// Remedies returns the options for s, Skip first.
func Remedies(s Suggestion) []Remedy {
	ref := s.Ref()
	skip := Remedy{Label: "Skip"}
	unwrap := Remedy{Label: "Unwrap reference", Update: change(xquery.ReplaceWithText{Element: ref.Element, Text: ref.Text})}

	switch s := s.(type) {
	case *MissingDocument:
		out := []Remedy{skip, unwrap}
		for _, candidate := range s.Candidates {
			href := refpath.Join(refpath.Relative(ref.Referrer, candidate), ref.Fragment)
			out = append(out, Remedy{
				Label:  "Change reference to " + candidate,
				Update: change(xquery.ReplaceAttr{Element: ref.Element, Key: "href", Value: href}),
			})
		}
		return out
	case *MissingElement:
		href := refpath.Relative(ref.Referrer, ref.Target)
		return []Remedy{
			skip,
			{Label: "Reference the whole document instead", Update: change(xquery.ReplaceAttr{Element: ref.Element, Key: "href", Value: href})},
			unwrap,
		}
	case *UnmappedDocument:
		return []Remedy{skip, unwrap}
	case *TextMismatch:
		return []Remedy{
			skip,
			{Label: "Update to match reference target", Update: change(xquery.ReplaceContent{Element: ref.Element, Text: s.Title})},
			unwrap,
		}
	default:
		panic(fmt.Sprintf("audit: unhandled suggestion %T", s))
	}
}

// Detail is one labeled line of a suggestion's description.
type Detail struct {
	Label string
	Value string
}

// Describe returns the warning message and the details shown for s.
func Describe(s Suggestion) (string, []Detail) {
	ref := s.Ref()
	referrer := Detail{Label: "Referring file", Value: ref.Location()}
	text := Detail{Label: "Link text", Value: fmt.Sprintf("%q", ref.Text)}

	switch s := s.(type) {
	case *MissingDocument:
		return "The target file could not be loaded: " + s.Reason,
			[]Detail{referrer, {Label: "Link target", Value: ref.Target}, text}
	case *MissingElement:
		return "The referenced element was not found in the target document.",
			[]Detail{referrer, {Label: "Link target", Value: ref.Target}, {Label: "Link element", Value: s.ElementID}, text}
	case *UnmappedDocument:
		return "The target document is not part of the root map.",
			[]Detail{referrer, {Label: "Link target", Value: ref.Target}, text}
	case *TextMismatch:
		return "The link text does not match the target title text.",
			[]Detail{referrer, text, {Label: "Target title", Value: fmt.Sprintf("%q", s.Title)}}
	default:
		panic(fmt.Sprintf("audit: unhandled suggestion %T", s))
	}
}

func change(c xquery.Change) xquery.Update {
	return xquery.UpdateFunc(func(*etree.Document) ([]xquery.Change, error) {
		return []xquery.Change{c}, nil
	})
}
