// Package audit checks every outbound reference of a project and applies the
// fixes the operator picks.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"

	"github.com/beevik/etree"

	"github.com/ditaref/ditaref/internal/fileutil"
	"github.com/ditaref/ditaref/internal/prompt"
	"github.com/ditaref/ditaref/internal/refpath"
	"github.com/ditaref/ditaref/internal/search"
	"github.com/ditaref/ditaref/internal/sitemap"
	"github.com/ditaref/ditaref/internal/storage"
	"github.com/ditaref/ditaref/internal/store"
	"github.com/ditaref/ditaref/internal/ux"
	"github.com/ditaref/ditaref/internal/xquery"
)

// ReasonLength is how much of a load failure is shown.
const ReasonLength = 20

// FixOptions enables categories. A disabled category is still detected but
// produces no suggestion.
type FixOptions struct {
	DocumentNotFound bool
	ElementNotFound  bool
	DocumentNotInMap bool
	TextNotMatch     bool
}

// All enables every category.
func All() FixOptions {
	return FixOptions{DocumentNotFound: true, ElementNotFound: true, DocumentNotInMap: true, TextNotMatch: true}
}

func (f FixOptions) enabled(c Category) bool {
	switch c {
	case DocumentNotFound:
		return f.DocumentNotFound
	case ElementNotFound:
		return f.ElementNotFound
	case DocumentNotInMap:
		return f.DocumentNotInMap
	case TextNotMatch:
		return f.TextNotMatch
	default:
		return false
	}
}

type Options struct {
	Fix FixOptions
	// Sitemap enables the navigation check when set.
	Sitemap *sitemap.Sitemap
	// Formats lists the format attribute values that mark a reference.
	Formats  []string
	Prompter prompt.Prompter
	Memory   *AnswerMemory
	Out      *ux.Printer
	// Progress is called before each document is checked.
	Progress func(key string, done, total int)
}

// Report summarizes one run.
type Report struct {
	Documents   int            `json:"documents"`
	References  int            `json:"references"`
	Suggestions map[string]int `json:"suggestions"`
	Fixed       int            `json:"fixed"`
	Skipped     int            `json:"skipped"`
	Written     []string       `json:"written,omitempty"`
}

// Total returns the number of suggestions made.
func (r *Report) Total() int {
	total := 0
	for _, n := range r.Suggestions {
		total += n
	}
	return total
}

type auditor struct {
	store   *store.Store
	opts    Options
	targets map[string]bool
}

// Run audits every document known to st, in discovery order. References of
// one document are handled one at a time and every fix is written before the
// next reference is checked.
func Run(ctx context.Context, st *store.Store, opts Options) (*Report, error) {
	if opts.Prompter == nil {
		opts.Prompter = prompt.Static{}
	}
	if opts.Memory == nil {
		opts.Memory = NewAnswerMemory()
	}
	if opts.Out == nil {
		opts.Out = ux.NewPrinter(io.Discard)
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []string{"dita"}
	}

	a := &auditor{store: st, opts: opts}
	if opts.Sitemap != nil {
		targets, err := opts.Sitemap.Targets(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read root map: %w", err)
		}
		a.targets = targets
	}

	report := &Report{Suggestions: make(map[string]int)}
	keys := st.Keys()
	for i, key := range keys {
		if opts.Progress != nil {
			opts.Progress(key, i, len(keys))
		}
		if err := a.document(ctx, key, report); err != nil {
			return report, err
		}
		report.Documents++
	}
	report.Written = fileutil.DedupeStrings(report.Written)
	return report, nil
}

func (a *auditor) document(ctx context.Context, key string, report *Report) error {
	doc, err := a.store.Tree(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}

	for _, ref := range References(doc, key, a.opts.Formats) {
		if !xquery.Attached(doc, ref.Element) {
			continue
		}
		report.References++

		suggestion, err := a.check(ctx, ref)
		if err != nil {
			return err
		}
		if suggestion == nil {
			continue
		}
		report.Suggestions[suggestion.Category().String()]++

		remedy, err := a.choose(ctx, suggestion)
		if err != nil {
			return err
		}
		if remedy.Update == nil {
			report.Skipped++
			continue
		}

		tx, err := a.store.ApplyUpdate(ctx, key, remedy.Update)
		if err != nil {
			return fmt.Errorf("failed to prepare fix for %s: %w", key, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to apply fix to %s: %w", key, err)
		}
		if tx.Len() == 0 {
			continue
		}
		report.Fixed++
		if err := a.store.Write(ctx, key); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		report.Written = append(report.Written, key)
	}
	return nil
}

// References returns the checkable links of doc in document order: elements
// with an href, link text and one of formats, pointing inside the project.
func References(doc *etree.Document, referrer string, formats []string) []Reference {
	var refs []Reference
	for _, el := range xquery.Select(doc.Root(), func(el *etree.Element) bool {
		return el.SelectAttrValue("href", "") != "" && slices.Contains(formats, el.SelectAttrValue("format", ""))
	}) {
		href := el.SelectAttrValue("href", "")
		if refpath.IsExternal(href) {
			continue
		}
		text := xquery.StringValue(el)
		if text == "" {
			continue
		}
		target, fragment := refpath.Split(refpath.Resolve(referrer, href))
		refs = append(refs, Reference{
			Referrer: referrer,
			Element:  el,
			Href:     href,
			Target:   target,
			Fragment: fragment,
			Text:     text,
		})
	}
	return refs
}

// check runs the categories in order. The first problem found decides the
// outcome, whether or not its category is enabled.
func (a *auditor) check(ctx context.Context, ref Reference) (Suggestion, error) {
	fix := a.opts.Fix

	targetDoc, err := a.store.Tree(ctx, ref.Target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !fix.enabled(DocumentNotFound) {
			return nil, nil
		}
		return &MissingDocument{
			Reference:  ref,
			Reason:     reason(err),
			Candidates: a.candidates(ref.Target),
		}, nil
	}

	target := targetDoc.Root()
	if id := refpath.ElementID(ref.Fragment); id != "" {
		target = xquery.ElementByID(targetDoc.Root(), id)
		if target == nil {
			if !fix.enabled(ElementNotFound) {
				return nil, nil
			}
			return &MissingElement{Reference: ref, ElementID: id}, nil
		}
	}

	if a.targets != nil && !a.targets[ref.Target] {
		if !fix.enabled(DocumentNotInMap) {
			return nil, nil
		}
		return &UnmappedDocument{Reference: ref}, nil
	}

	titleEl := xquery.ChildElement(target, "title")
	if titleEl == nil {
		return nil, nil
	}
	title := xquery.StringValue(titleEl)
	if title == ref.Text || !fix.enabled(TextNotMatch) {
		return nil, nil
	}
	return &TextMismatch{Reference: ref, Title: title}, nil
}

// candidates returns the other known documents sharing the target's file
// name, those with the most directory names in common first.
func (a *auditor) candidates(target string) []string {
	base := path.Base(target)
	var out []string
	for _, key := range a.store.Keys() {
		if key != target && path.Base(key) == base {
			out = append(out, key)
		}
	}
	if len(out) < 2 {
		return out
	}
	return search.Build(out).Rank(target)
}

// choose presents s and returns the operator's pick. A remembered answer for
// the same problem is offered first as "Repeat last".
func (a *auditor) choose(ctx context.Context, s Suggestion) (Remedy, error) {
	remedies := Remedies(s)
	labels := make([]string, 0, len(remedies)+1)

	last, remembered := a.opts.Memory.Lookup(s.Category(), s.Key())
	if remembered && last >= 0 && last < len(remedies) {
		labels = append(labels, "Repeat last: "+remedies[last].Label)
	} else {
		remembered = false
	}
	for _, r := range remedies {
		labels = append(labels, r.Label)
	}

	message, details := Describe(s)
	a.opts.Out.Info("")
	a.opts.Out.Warn("%s", message)
	for _, d := range details {
		a.opts.Out.Prefix(d.Label, "%s", d.Value)
	}

	picked, err := a.opts.Prompter.Select(ctx, s.Category().String()+": How proceed?", labels)
	if err != nil {
		return Remedy{}, fmt.Errorf("failed to read choice: %w", err)
	}
	choice := picked
	if remembered {
		choice = last
		if picked > 0 {
			choice = picked - 1
		}
	}
	if choice < 0 || choice >= len(remedies) {
		return Remedy{}, fmt.Errorf("choice %d out of range", picked)
	}

	a.opts.Memory.Remember(s.Category(), s.Key(), choice)
	return remedies[choice], nil
}

func reason(err error) string {
	var notFound *store.NotFoundError
	if errors.As(err, &notFound) && notFound.Err != nil {
		err = notFound.Err
	}
	var collab *storage.CollaboratorError
	if errors.As(err, &collab) {
		return collab.Excerpt(ReasonLength)
	}
	return storage.Truncate(err.Error(), ReasonLength)
}
