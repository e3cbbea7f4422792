package layout

import (
	"memlayout/internal/trace"
	"memlayout/internal/types"
)

// layoutState is the path of types currently being walked.
type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
	done  []types.TypeID
	seen  map[types.TypeID]struct{}
}

func newLayoutState() *layoutState {
	return &layoutState{
		stack: nil,
		index: make(map[types.TypeID]int, 32),
		seen:  make(map[types.TypeID]struct{}, 32),
	}
}

// checkAcyclic walks every edge along which a value is stored inline
// (members, elements, payloads, alias targets) and rejects a type that
// reaches itself without passing through a pointer. Verified types are
// remembered, so each type is walked at most once per engine.
func (e *Engine) checkAcyclic(root types.TypeID) *LayoutError {
	if e.cache.isAcyclic(root) {
		return nil
	}
	state := newLayoutState()
	if err := e.walkInline(root, state); err != nil {
		trace.Point(e.tracer, trace.ScopeQuery, "cycle", err.Error(), 0)
		return err
	}
	e.cache.markAcyclic(state.done)
	return nil
}

func (e *Engine) walkInline(id types.TypeID, state *layoutState) *LayoutError {
	if id == types.NoTypeID || e.cache.isAcyclic(id) {
		return nil
	}
	if idx, ok := state.index[id]; ok {
		cycle := append([]types.TypeID(nil), state.stack[idx:]...)
		cycle = append(cycle, id)
		path := make([]string, 0, len(cycle))
		for _, c := range cycle {
			path = append(path, e.label(c))
		}
		return &LayoutError{
			Kind:  LayoutErrCyclic,
			Type:  id,
			Label: e.label(id),
			Cycle: cycle,
			Path:  path,
		}
	}
	if _, ok := state.seen[id]; ok {
		return nil
	}

	state.index[id] = len(state.stack)
	state.stack = append(state.stack, id)
	for _, next := range e.inlineEdges(id) {
		if err := e.walkInline(next, state); err != nil {
			return err
		}
	}
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, id)
	state.done = append(state.done, id)
	state.seen[id] = struct{}{}
	return nil
}

// inlineEdges lists the types stored by value inside id. Pointers end the walk.
func (e *Engine) inlineEdges(id types.TypeID) []types.TypeID {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return nil
	}
	switch tt.Kind {
	case types.KindAlias:
		if target, ok := e.Types.AliasTarget(id); ok {
			return []types.TypeID{target}
		}
	case types.KindArray, types.KindSequence:
		return []types.TypeID{tt.Elem}
	case types.KindComposite, types.KindTuple, types.KindTail:
		info, ok := e.Types.CompositeInfo(id)
		if !ok {
			return nil
		}
		out := make([]types.TypeID, 0, len(info.Members)+1)
		for _, m := range info.Members {
			out = append(out, m.Type)
		}
		if info.Tail != types.NoTypeID {
			out = append(out, info.Tail)
		}
		return out
	case types.KindUnion:
		info, ok := e.Types.UnionInfo(id)
		if !ok {
			return nil
		}
		out := make([]types.TypeID, 0, len(info.Variants))
		for _, v := range info.Variants {
			if v.HasPayload() {
				out = append(out, v.Payload)
			}
		}
		return out
	}
	return nil
}

// canonical resolves aliases to the type they name.
func (e *Engine) canonical(id types.TypeID) (types.TypeID, *LayoutError) {
	seen := make(map[types.TypeID]struct{}, 4)
	for {
		tt, ok := e.Types.Lookup(id)
		if !ok {
			return id, &LayoutError{Kind: LayoutErrUnknownType, Type: id}
		}
		if tt.Kind != types.KindAlias {
			return id, nil
		}
		if _, ok := seen[id]; ok {
			return id, &LayoutError{Kind: LayoutErrCyclic, Type: id, Label: e.label(id), Cycle: []types.TypeID{id}}
		}
		seen[id] = struct{}{}
		target, ok := e.Types.AliasTarget(id)
		if !ok {
			return id, &LayoutError{Kind: LayoutErrUnknownType, Type: id, Label: e.label(id), Detail: "alias has no target"}
		}
		id = target
	}
}
