package layout

import (
	"errors"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"memlayout/internal/trace"
	"memlayout/internal/types"
)

type cacheKey struct {
	Type   types.TypeID
	Policy Policy
}

func (k cacheKey) String() string {
	return strconv.FormatUint(uint64(k.Type), 10) + "/" + k.Policy.String()
}

// cache memoizes completed shapes. In-flight computations are shared through
// a singleflight group so a key is computed once however many callers ask.
// Failures are never stored.
type cache struct {
	mu     sync.RWMutex
	byKey  map[cacheKey]*shape
	flight singleflight.Group

	// acyclic holds types whose inline member graph was already walked.
	acyclicMu sync.RWMutex
	acyclic   map[types.TypeID]struct{}
}

func newCache() *cache {
	return &cache{
		byKey:   make(map[cacheKey]*shape, 256),
		acyclic: make(map[types.TypeID]struct{}, 256),
	}
}

func (c *cache) get(k cacheKey) (*shape, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sh, ok := c.byKey[k]
	return sh, ok
}

func (c *cache) put(k cacheKey, sh *shape) {
	if sh == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byKey[k]; !exists {
		c.byKey[k] = sh
	}
}

func (c *cache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}

func (c *cache) isAcyclic(id types.TypeID) bool {
	c.acyclicMu.RLock()
	defer c.acyclicMu.RUnlock()
	_, ok := c.acyclic[id]
	return ok
}

func (c *cache) markAcyclic(ids []types.TypeID) {
	if len(ids) == 0 {
		return
	}
	c.acyclicMu.Lock()
	defer c.acyclicMu.Unlock()
	for _, id := range ids {
		c.acyclic[id] = struct{}{}
	}
}

// resolve returns the cached shape for id, computing it at most once per key.
// Callers must have run checkAcyclic on a root that reaches id.
func (e *Engine) resolve(id types.TypeID, policy Policy, parent uint64) (*shape, *LayoutError) {
	canon, err := e.canonical(id)
	if err != nil {
		return nil, err
	}
	key := cacheKey{Type: canon, Policy: policy}
	if sh, ok := e.cache.get(key); ok {
		e.hits.Add(1)
		return sh, nil
	}

	v, ferr, shared := e.cache.flight.Do(key.String(), func() (any, error) {
		if sh, ok := e.cache.get(key); ok {
			return sh, nil
		}
		span := trace.Begin(e.tracer, trace.ScopeType, e.spanName("type", canon), parent)
		sh, lerr := e.compute(canon, policy, span.ID())
		if lerr != nil {
			span.Fail(lerr)
			return nil, lerr
		}
		span.EndLayout(sh.res.Size, sh.res.Align)
		e.computed.Add(1)
		e.cache.put(key, sh)
		return sh, nil
	})
	if shared {
		trace.Point(e.tracer, trace.ScopeType, "shared", key.String(), parent)
	}
	if ferr != nil {
		var lerr *LayoutError
		if errors.As(ferr, &lerr) {
			return nil, lerr
		}
		return nil, &LayoutError{Kind: LayoutErrUnknownType, Type: canon, Detail: ferr.Error()}
	}
	sh, ok := v.(*shape)
	if !ok || sh == nil {
		return nil, &LayoutError{Kind: LayoutErrUnknownType, Type: canon, Detail: "no layout produced"}
	}
	return sh, nil
}
