package internal

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// HandlerState tells apart the three states of a store's handler slot.
type HandlerState uint8

const (
	// HandlerUnset means no handler was ever assigned.
	HandlerUnset HandlerState = iota
	// HandlerDisabled means the store was explicitly marked "do not use".
	HandlerDisabled
	// HandlerBound means a handler is assigned.
	HandlerBound
)

func (s HandlerState) String() string {
	switch s {
	case HandlerDisabled:
		return "disabled"
	case HandlerBound:
		return "bound"
	default:
		return "unset"
	}
}

// StorageContainer is a node of the store tree. Children are created on
// first access and keep their identity, so a reference taken before
// configuration becomes live once a handler is bound and the tree is
// finalized. After finalization no handler can be reassigned and no new
// child can be created.
//
// The container itself is a Folder with an empty path, so file operations
// on it go to its own handler.
type StorageContainer struct {
	Folder

	parent   *StorageContainer
	children map[string]*StorageContainer
	bound    StorageHandler
	key      string

	mu         sync.RWMutex
	finalizeMu sync.Mutex

	state     HandlerState
	finalized bool
}

// New returns an empty root container.
func New() *StorageContainer {
	return newContainer(nil, "")
}

func newContainer(parent *StorageContainer, key string) *StorageContainer {
	c := &StorageContainer{
		parent:   parent,
		key:      key,
		children: make(map[string]*StorageContainer),
	}
	c.Folder = Folder{store: c}
	return c
}

// Name returns the lineage of the container, e.g. "['a']['b']".
// The root's name is empty.
func (c *StorageContainer) Name() string {
	if c.parent == nil {
		return ""
	}
	return c.parent.Name() + "['" + c.key + "']"
}

// Key returns the key the container was created under.
func (c *StorageContainer) Key() string { return c.key }

// Parent returns the parent container, nil for the root.
func (c *StorageContainer) Parent() *StorageContainer { return c.parent }

func (c *StorageContainer) String() string {
	return fmt.Sprintf("<StorageContainer store%s>", c.Name())
}

// Store returns the child for key, creating it on first access.
// Once the container is finalized only existing children can be returned.
func (c *StorageContainer) Store(key string) (*StorageContainer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if child, ok := c.children[key]; ok {
		return child, nil
	}
	if c.finalized {
		return nil, configError(ErrFinalized, c.Name(),
			"Getting store%s['%s']: store already finalized!", c.Name(), key)
	}
	child := newContainer(c, key)
	c.children[key] = child
	return child, nil
}

// MustStore is like Store but panics on error.
// It is meant for package-level declarations made before finalization.
func (c *StorageContainer) MustStore(key string) *StorageContainer {
	child, err := c.Store(key)
	if err != nil {
		panic(err)
	}
	return child
}

// Keys returns the keys of the existing children in sorted order.
func (c *StorageContainer) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.children))
}

// Finalized reports whether FinalizeConfig has completed.
func (c *StorageContainer) Finalized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.finalized
}

// HandlerState reports whether a handler is unset, disabled or bound.
func (c *StorageContainer) HandlerState() HandlerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Disabled reports whether the store was explicitly marked "do not use".
func (c *StorageContainer) Disabled() bool {
	return c.HandlerState() == HandlerDisabled
}

// Handler returns the bound handler. It fails with ErrNoHandler when no
// handler was ever set and with ErrStoreDisabled when the store is disabled.
func (c *StorageContainer) Handler() (StorageHandler, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.state {
	case HandlerBound:
		return c.bound, nil
	case HandlerDisabled:
		return nil, configError(ErrStoreDisabled, c.Name(), "Store store%s is disabled", c.Name())
	default:
		return nil, configError(ErrNoHandler, c.Name(), "No handler provided for store%s", c.Name())
	}
}

// SyncHandler returns the bound handler if it accepts blocking calls.
func (c *StorageContainer) SyncHandler() (StorageHandler, error) {
	h, err := c.Handler()
	if err != nil {
		return nil, err
	}
	if !h.Mode().Blocking() {
		return nil, configError(ErrModeMismatch, c.Name(), "No sync handler provided for store%s", c.Name())
	}
	return h, nil
}

// AsyncHandler returns the bound handler if it accepts non-blocking calls.
func (c *StorageContainer) AsyncHandler() (StorageHandler, error) {
	h, err := c.Handler()
	if err != nil {
		return nil, err
	}
	if !h.Mode().NonBlocking() {
		return nil, configError(ErrModeMismatch, c.Name(), "No async handler provided for store%s", c.Name())
	}
	return h, nil
}

// SetHandler binds h to the store. A nil handler marks the store "do not
// use". It fails once the store is finalized, leaving the current handler
// in place.
func (c *StorageContainer) SetHandler(h StorageHandler) error {
	if isNilHandler(h) {
		return c.bind(nil, HandlerDisabled)
	}
	if err := c.checkCycle(h); err != nil {
		return err
	}
	return c.bind(h, HandlerBound)
}

// Disable marks the store "do not use".
func (c *StorageContainer) Disable() error {
	return c.SetHandler(nil)
}

func (c *StorageContainer) bind(h StorageHandler, state HandlerState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return configError(ErrFinalized, c.Name(),
			"Setting store%s.handler: store already finalized!", c.Name())
	}
	if hh, ok := h.(*Handler); ok && c.parent != nil {
		hh.setName(c.key)
	}
	c.bound = h
	c.state = state
	return nil
}

func isNilHandler(h StorageHandler) bool {
	switch v := h.(type) {
	case nil:
		return true
	case *Handler:
		return v == nil
	case *Folder:
		return v == nil
	case *StorageContainer:
		return v == nil
	}
	return false
}

// checkCycle rejects handlers that would resolve back to c.
func (c *StorageContainer) checkCycle(h StorageHandler) error {
	for h != nil {
		var owner *StorageContainer
		switch v := h.(type) {
		case *StorageContainer:
			owner = v
		case *Folder:
			owner = v.store
		default:
			return nil
		}
		if owner == c {
			return configError(ErrInvalidValue, c.Name(),
				"Setting store%s.handler: handler resolves back to this store", c.Name())
		}
		owner.mu.RLock()
		h = owner.bound
		owner.mu.RUnlock()
	}
	return nil
}

// plan lists the nodes finalization touches: every not yet finalized node
// of the subtree, and among them the bound ones that need validation.
// Disabled subtrees are frozen without validation.
func (c *StorageContainer) plan() (freeze, validate []*StorageContainer, err error) {
	c.mu.RLock()
	state, finalized := c.state, c.finalized
	keys := slices.Sorted(maps.Keys(c.children))
	children := make([]*StorageContainer, 0, len(keys))
	for _, k := range keys {
		children = append(children, c.children[k])
	}
	c.mu.RUnlock()

	if finalized {
		return nil, nil, nil
	}

	switch state {
	case HandlerUnset:
		return nil, nil, configError(ErrNoHandler, c.Name(), "No handler provided for store%s", c.Name())
	case HandlerDisabled:
		return c.subtree(), nil, nil
	}

	freeze = append(freeze, c)
	validate = append(validate, c)
	for _, child := range children {
		f, v, err := child.plan()
		if err != nil {
			return nil, nil, err
		}
		freeze = append(freeze, f...)
		validate = append(validate, v...)
	}
	return freeze, validate, nil
}

// root returns the top of the tree. Finalization of any node locks the
// root, so overlapping calls on a store and its child validate once.
func (c *StorageContainer) root() *StorageContainer {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

func (c *StorageContainer) subtree() []*StorageContainer {
	c.mu.RLock()
	children := slices.Collect(maps.Values(c.children))
	c.mu.RUnlock()

	nodes := []*StorageContainer{c}
	for _, child := range children {
		nodes = append(nodes, child.subtree()...)
	}
	return nodes
}

func freezeAll(nodes []*StorageContainer) {
	for _, n := range nodes {
		n.mu.Lock()
		n.finalized = true
		n.mu.Unlock()
	}
}

// validationError makes every validation failure a ConfigError naming the store.
func (c *StorageContainer) validationError(err error) error {
	if err == nil || errors.Is(err, ErrConfig) {
		return err
	}
	return configError(err, c.Name(), "Validating store%s: %v", c.Name(), err)
}

// FinalizeConfig validates the handler of this store and of every existing
// child, then freezes the subtree. A store that was never configured fails
// finalization; a disabled store is skipped. Nothing is frozen unless every
// validation succeeds. Calling it again after success does nothing.
//
// Handlers that refuse blocking calls fail here; use FinalizeConfigAsync.
func (c *StorageContainer) FinalizeConfig(ctx context.Context) error {
	root := c.root()
	root.finalizeMu.Lock()
	defer root.finalizeMu.Unlock()

	freeze, validate, err := c.plan()
	if err != nil {
		return err
	}
	for _, node := range validate {
		h, err := node.Handler()
		if err != nil {
			return err
		}
		if err := h.Validate(ctx); err != nil {
			return node.validationError(err)
		}
	}
	freezeAll(freeze)
	return nil
}

// FinalizeConfigAsync is the non-blocking form of FinalizeConfig. All
// handlers are validated concurrently.
func (c *StorageContainer) FinalizeConfigAsync(ctx context.Context) *Future[struct{}] {
	return Go(ctx, func(ctx context.Context) (struct{}, error) {
		root := c.root()
		root.finalizeMu.Lock()
		defer root.finalizeMu.Unlock()

		freeze, validate, err := c.plan()
		if err != nil {
			return struct{}{}, err
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, node := range validate {
			g.Go(func() error {
				h, err := node.Handler()
				if err != nil {
					return err
				}
				return node.validationError(h.ValidateAsync(gctx).Err(gctx))
			})
		}
		if err := g.Wait(); err != nil {
			return struct{}{}, err
		}
		freezeAll(freeze)
		return struct{}{}, nil
	})
}
