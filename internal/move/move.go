// Package move relocates a document and rewrites every reference to and from
// it so each still points at the same document.
package move

import (
	"context"
	"fmt"
	"io"

	"github.com/beevik/etree"
	"golang.org/x/sync/errgroup"

	"github.com/ditaref/ditaref/internal/prompt"
	"github.com/ditaref/ditaref/internal/refpath"
	"github.com/ditaref/ditaref/internal/store"
	"github.com/ditaref/ditaref/internal/ux"
	"github.com/ditaref/ditaref/internal/xquery"
)

const defaultConcurrency = 8

// referenceAttrs are the attributes that point at other documents.
var referenceAttrs = []string{"href", "conref"}

// ValidationError reports an unusable source or destination.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

type Options struct {
	// Yes skips the confirmation prompt.
	Yes         bool
	Prompter    prompt.Prompter
	Concurrency int
	Out         *ux.Printer
}

// Result describes a finished, aborted or partially applied move.
type Result struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Scanned  int      `json:"scanned"`
	Changes  int      `json:"changes"`
	Outbound int      `json:"outbound"`
	Updated  []string `json:"updated,omitempty"`
	Aborted  bool     `json:"aborted"`
}

// Relocate moves oldKey to newKey. Every inbound rewrite is staged before
// anything changes. A failure after the document has been moved leaves the
// move partially applied; the returned Result lists what was written.
func Relocate(ctx context.Context, st *store.Store, oldKey, newKey string, opts Options) (*Result, error) {
	if opts.Out == nil {
		opts.Out = ux.NewPrinter(io.Discard)
	}
	oldKey = refpath.Normalize(oldKey)
	newKey = refpath.Normalize(newKey)
	if err := Validate(ctx, st, oldKey, newKey); err != nil {
		return nil, err
	}

	plan, err := Prepare(ctx, st, oldKey, newKey, opts.Concurrency)
	if err != nil {
		return nil, err
	}
	result := &Result{From: oldKey, To: newKey, Scanned: plan.Scanned, Changes: plan.Changes()}

	opts.Out.Prefix("Target", "%s", oldKey)
	opts.Out.Prefix("Destination", "%s", newKey)
	if !opts.Yes {
		if opts.Prompter == nil {
			return nil, fmt.Errorf("confirmation required: no prompter configured")
		}
		question := fmt.Sprintf("About to make %d changes across %d out of %d files, do you want to continue?",
			plan.Changes(), len(plan.Entries), plan.Scanned)
		ok, err := opts.Prompter.Confirm(ctx, question)
		if err != nil {
			return nil, fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !ok {
			opts.Out.Info("Aborting move, no changes have been made.")
			result.Aborted = true
			return result, nil
		}
	}

	opts.Out.Info("Moving file.")
	if err := st.Move(ctx, oldKey, newKey); err != nil {
		return nil, fmt.Errorf("failed to move %s: %w", oldKey, err)
	}

	opts.Out.Info("Updating outbound references.")
	tx, err := st.ApplyUpdate(ctx, newKey, outbound(oldKey, newKey))
	if err != nil {
		return result, fmt.Errorf("failed to rewrite references of %s: %w", newKey, err)
	}
	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to rewrite references of %s: %w", newKey, err)
	}
	result.Outbound = tx.Len()
	if tx.Len() > 0 {
		if err := st.Write(ctx, newKey); err != nil {
			return result, fmt.Errorf("failed to write %s: %w", newKey, err)
		}
		result.Updated = append(result.Updated, newKey)
	}

	opts.Out.Info("Updating inbound references.")
	for _, entry := range plan.Entries {
		if err := entry.tx.Commit(); err != nil {
			return result, fmt.Errorf("failed to rewrite references in %s: %w", entry.Key, err)
		}
		if err := st.Write(ctx, entry.Key); err != nil {
			return result, fmt.Errorf("failed to write %s: %w", entry.Key, err)
		}
		result.Updated = append(result.Updated, entry.Key)
	}

	opts.Out.Success("Done, all changes saved.")
	return result, nil
}

// Validate checks that oldKey can be moved to newKey.
func Validate(ctx context.Context, st *store.Store, oldKey, newKey string) error {
	if oldKey == "" {
		return &ValidationError{Reason: "source is not a valid file name"}
	}
	if newKey == "" {
		return &ValidationError{Reason: "destination is not a valid file name"}
	}
	if oldKey == newKey {
		return &ValidationError{Key: newKey, Reason: "source and destination are the same"}
	}
	exists, err := st.Exists(ctx, oldKey)
	if err != nil {
		return err
	}
	if !exists {
		return &ValidationError{Key: oldKey, Reason: "file does not exist"}
	}
	exists, err = st.Exists(ctx, newKey)
	if err != nil {
		return err
	}
	if exists {
		return &ValidationError{Key: newKey, Reason: "file already exists"}
	}
	return nil
}

// Entry is the staged rewrite of one referring document.
type Entry struct {
	Key string
	tx  *store.Transaction
}

// Changes returns the number of attributes the entry rewrites.
func (e Entry) Changes() int {
	return e.tx.Len()
}

// Plan is the complete set of inbound rewrites for a move.
type Plan struct {
	Scanned int
	Entries []Entry
}

func (p *Plan) Changes() int {
	total := 0
	for _, entry := range p.Entries {
		total += entry.Changes()
	}
	return total
}

// Prepare stages a rewrite for every known document that references oldKey.
// Documents are loaded concurrently; nothing is modified.
func Prepare(ctx context.Context, st *store.Store, oldKey, newKey string, concurrency int) (*Plan, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var keys []string
	for _, key := range st.Keys() {
		if key != oldKey {
			keys = append(keys, key)
		}
	}

	txs := make([]*store.Transaction, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, key := range keys {
		g.Go(func() error {
			tx, err := st.ApplyUpdate(gctx, key, inbound(key, oldKey, newKey))
			if err != nil {
				return fmt.Errorf("failed to plan changes for %s: %w", key, err)
			}
			txs[i] = tx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	plan := &Plan{Scanned: len(keys) + 1}
	for i, tx := range txs {
		if tx.Len() > 0 {
			plan.Entries = append(plan.Entries, Entry{Key: keys[i], tx: tx})
		}
	}
	return plan, nil
}

// inbound rewrites references in referrer that point at oldKey.
func inbound(referrer, oldKey, newKey string) xquery.Update {
	return rewrite(func(value string) (string, bool) {
		if refpath.IsExternal(value) {
			return "", false
		}
		doc, fragment := refpath.Split(refpath.Resolve(referrer, value))
		if doc != oldKey {
			return "", false
		}
		return refpath.Join(refpath.Relative(referrer, newKey), fragment), true
	})
}

// outbound re-encodes the references of the moved document for its new
// location. References to the document itself follow it.
func outbound(oldKey, newKey string) xquery.Update {
	return rewrite(func(value string) (string, bool) {
		if refpath.IsExternal(value) || value == "" || value[0] == '#' {
			return "", false
		}
		doc, fragment := refpath.Split(refpath.Resolve(oldKey, value))
		if doc == oldKey {
			doc = newKey
		}
		return refpath.Join(refpath.Relative(newKey, doc), fragment), true
	})
}

func rewrite(replace func(value string) (string, bool)) xquery.Update {
	return xquery.UpdateFunc(func(doc *etree.Document) ([]xquery.Change, error) {
		var changes []xquery.Change
		xquery.Walk(doc.Root(), func(el *etree.Element) bool {
			for _, name := range referenceAttrs {
				attr := el.SelectAttr(name)
				if attr == nil {
					continue
				}
				next, ok := replace(attr.Value)
				if !ok || next == attr.Value {
					continue
				}
				changes = append(changes, xquery.ReplaceAttr{Element: el, Key: name, Value: next})
			}
			return true
		})
		return changes, nil
	})
}
