package settings

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dmitrymomot/filestorage"
)

// DefaultPrefix is the root key of the settings tree.
const DefaultPrefix = "store"

// HandlerNone disables a store.
const HandlerNone = "none"

// Node is the configuration of one store and its sub-stores.
type Node struct {
	// Handler is nil when the settings name no handler for this store.
	Handler *HandlerConfig

	// Stores holds sub-store configuration by key.
	Stores map[string]*Node

	// Key is the settings key of the node, e.g. "store['avatars']".
	Key string
}

// HandlerConfig is a handler type with its arguments and filters.
type HandlerConfig struct {
	Args    map[string]any
	Type    string
	Key     string
	Filters []FilterConfig
}

// Disabled reports whether the handler type is "none".
func (h *HandlerConfig) Disabled() bool {
	return strings.EqualFold(strings.TrimSpace(h.Type), HandlerNone)
}

// FilterConfig is a filter type with its arguments.
type FilterConfig struct {
	Args map[string]any
	Type string
	Key  string
}

func newNode(key string) *Node {
	return &Node{Key: key, Stores: map[string]*Node{}}
}

// Empty reports whether the node carries no configuration at all.
func (n *Node) Empty() bool {
	return n == nil || (n.Handler == nil && len(n.Stores) == 0)
}

// StoreKeys returns the sub-store keys, sorted.
func (n *Node) StoreKeys() []string {
	return slices.Sorted(maps.Keys(n.Stores))
}

func subKey(parent, key string) string {
	return fmt.Sprintf("%s['%s']", parent, key)
}

func configErrorf(format string, args ...any) error {
	return filestorage.NewConfigError(filestorage.ErrInvalidValue, format, args...)
}

// nodeFromDocument converts a decoded YAML or TOML document:
//
//	handler: local            # or a mapping with "type"
//	stores:
//	  avatars:
//	    handler:
//	      type: memory
//	      filters:
//	        - randomize_filename
//	        - type: validate_extension
//	          extensions: [png, jpg]
func nodeFromDocument(key string, doc map[string]any) (*Node, error) {
	n := newNode(key)
	for _, name := range slices.Sorted(maps.Keys(doc)) {
		value := doc[name]
		switch name {
		case "handler":
			h, err := handlerFromDocument(key+".handler", value)
			if err != nil {
				return nil, err
			}
			n.Handler = h
		case "stores":
			stores, ok := asMap(value)
			if !ok {
				return nil, configErrorf("Bad value for %s.stores: expected a mapping", key)
			}
			for sub, subDoc := range stores {
				m, ok := asMap(subDoc)
				if !ok {
					return nil, configErrorf("Bad value for %s: expected a mapping", subKey(key, sub))
				}
				child, err := nodeFromDocument(subKey(key, sub), m)
				if err != nil {
					return nil, err
				}
				n.Stores[sub] = child
			}
		default:
			return nil, unknownKeyError(key+"."+name, name, []string{"handler", "stores"})
		}
	}
	return n, nil
}

func handlerFromDocument(key string, value any) (*HandlerConfig, error) {
	typ, args, err := typedFromDocument(key, value)
	if err != nil {
		return nil, err
	}
	h := &HandlerConfig{Type: typ, Key: key, Args: args}

	raw, ok := args["filters"]
	if !ok {
		return h, nil
	}
	delete(args, "filters")
	list, ok := asList(raw)
	if !ok {
		return nil, configErrorf("Bad value for %s.filters: expected a list", key)
	}
	for i, item := range list {
		fkey := fmt.Sprintf("%s.filters[%d]", key, i)
		ftyp, fargs, err := typedFromDocument(fkey, item)
		if err != nil {
			return nil, err
		}
		h.Filters = append(h.Filters, FilterConfig{Type: ftyp, Key: fkey, Args: fargs})
	}
	return h, nil
}

// typedFromDocument accepts either a bare type name or a mapping with a
// "type" entry plus arguments.
func typedFromDocument(key string, value any) (string, map[string]any, error) {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s), map[string]any{}, nil
	}
	m, ok := asMap(value)
	if !ok {
		return "", nil, configErrorf("Bad value for %s: expected a name or a mapping", key)
	}
	args := maps.Clone(m)
	typ, ok := args["type"].(string)
	if !ok || strings.TrimSpace(typ) == "" {
		return "", nil, configErrorf("Missing setting %s.type", key)
	}
	delete(args, "type")
	return strings.TrimSpace(typ), args, nil
}

// asMap normalizes the mapping types produced by the YAML and TOML decoders.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

// asList normalizes lists, including TOML arrays of tables.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}
