// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package proctree

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/edgesec/proctree/pkg/logger"
)

// Annotation is a typed, read-only value attached to exactly one process.
// A process carries at most one annotation per concrete type. Annotations
// must not be mutated after they are attached; attach a replacement instead.
type Annotation interface {
	// Key names the annotation in the exported bundle. Keys are stable
	// protocol identifiers, not Go type names.
	Key() string
	// Export renders the annotation payload for downstream transmission.
	Export() (*structpb.Value, error)
}

// Annotator observes process creation points and may attach annotations via
// ProcessTree.AnnotateProcess. The set of annotators is fixed at tree
// construction. Hooks run with the tree mutex released, so they may freely
// call back into the tree.
//
// Annotations are never copied across an exec; the successor node starts
// empty, and AnnotateExec is where each annotator decides whether the exec
// is a creation point for its state. Backfilled processes are announced
// through AnnotateFork with their discovered parent; roots get no callback.
type Annotator interface {
	AnnotateFork(tree *ProcessTree, parent, child *Process)
	AnnotateExec(tree *ProcessTree, oldProc, newProc *Process)
}

func validateAnnotators(annotators []Annotator) error {
	seen := make(map[reflect.Type]struct{}, len(annotators))
	for i, a := range annotators {
		if a == nil {
			return fmt.Errorf("annotator at index %d is nil", i)
		}
		typ := reflect.TypeOf(a)
		if _, ok := seen[typ]; ok {
			return fmt.Errorf("duplicate annotator type %s", typ)
		}
		seen[typ] = struct{}{}
	}
	return nil
}

// AnnotateProcess attaches a to the node for p's identity, replacing any
// prior annotation of the same concrete type. If the pid is no longer
// tracked the call is a no-op; annotators routinely race with removal.
func (t *ProcessTree) AnnotateProcess(p *Process, a Annotation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	node, ok := t.procs[p.Pid]
	if !ok {
		lookupMisses.WithLabelValues("annotate").Inc()
		return
	}
	node.annotations[reflect.TypeOf(a)] = a
}

// GetAnnotation returns the annotation of concrete type T attached to p, or
// false if p carries no such annotation.
func GetAnnotation[T Annotation](t *ProcessTree, p *Process) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	a, ok := p.annotations[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	v, ok := a.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// ExportAnnotations returns the merged bundle of all annotations attached
// to the node for pid, keyed by each annotation's Key. It reports false if
// the pid is not tracked. Serialization runs outside the tree mutex.
func (t *ProcessTree) ExportAnnotations(pid Pid) (*structpb.Struct, bool) {
	t.mu.Lock()
	node, ok := t.procs[pid]
	if !ok {
		lookupMisses.WithLabelValues("export").Inc()
		t.mu.Unlock()
		return nil, false
	}
	annotations := make([]Annotation, 0, len(node.annotations))
	for _, a := range node.annotations {
		annotations = append(annotations, a)
	}
	t.mu.Unlock()

	merged := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(annotations))}
	for _, a := range annotations {
		val, err := a.Export()
		if err != nil {
			logger.GetLogger().WithError(err).WithField("key", a.Key()).Warn("failed to export annotation")
			continue
		}
		merged.Fields[a.Key()] = val
	}
	return merged, true
}
