package settings

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// flatNode is one segment of a dotted settings key.
type flatNode struct {
	value    *string
	children map[string]*flatNode
}

func (f *flatNode) child(name string) *flatNode {
	if f.children == nil {
		f.children = map[string]*flatNode{}
	}
	c, ok := f.children[name]
	if !ok {
		c = &flatNode{}
		f.children[name] = c
	}
	return c
}

func (f *flatNode) names() []string {
	return slices.Sorted(maps.Keys(f.children))
}

// ParseFlat builds a settings tree from flat keys under prefix, as found in
// INI-style or environment-derived configuration:
//
//	store.handler = local
//	store.handler.base_path = /srv/files
//	store.handler.filters[0] = RandomizeFilename
//	store.handler.filters[1] = ValidateExtension
//	store.handler.filters[1].extensions = ['jpg', 'png']
//	store['avatars'].handler = memory
//	store['avatars']['small'].handler = none
//
// Keys not starting with prefix are ignored. The result is empty when no
// key matches.
func ParseFlat(settings map[string]string, prefix string) (*Node, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	root := &flatNode{}
	for key, value := range settings {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || (!strings.HasPrefix(rest, ".") && !strings.HasPrefix(rest, "[")) {
			continue
		}
		rest = strings.TrimPrefix(strings.ReplaceAll(rest, "[", ".["), ".")
		node := root
		for part := range strings.SplitSeq(rest, ".") {
			part = strings.TrimSpace(part)
			if isBracket(part) {
				part = "[" + bracketKey(part) + "]"
			}
			node = node.child(part)
		}
		v := strings.TrimSpace(value)
		node.value = &v
	}

	return storeFromFlat(prefix, root)
}

func storeFromFlat(key string, f *flatNode) (*Node, error) {
	n := newNode(key)
	if f.value != nil {
		return nil, configErrorf("Invalid setting %q: a store takes no value", key)
	}

	for _, name := range f.names() {
		child := f.children[name]
		switch {
		case name == "handler":
			h, err := handlerFromFlat(key+".handler", child)
			if err != nil {
				return nil, err
			}
			n.Handler = h
		case isBracket(name):
			sub := bracketKey(name)
			if sub == "" {
				return nil, configErrorf("Invalid setting %q: empty store key", key+name)
			}
			s, err := storeFromFlat(subKey(key, sub), child)
			if err != nil {
				return nil, err
			}
			n.Stores[sub] = s
		default:
			return nil, unknownKeyError(key+"."+name, name, []string{"handler"})
		}
	}

	if n.Handler == nil && len(f.children) > 0 {
		return nil, configErrorf("Missing setting %s.handler", key)
	}
	return n, nil
}

func handlerFromFlat(key string, f *flatNode) (*HandlerConfig, error) {
	if f.value == nil || *f.value == "" {
		return nil, configErrorf("Missing setting %s", key)
	}
	h := &HandlerConfig{Type: *f.value, Key: key, Args: map[string]any{}}

	for _, name := range f.names() {
		child := f.children[name]
		if name == "filters" {
			filters, err := filtersFromFlat(key+".filters", child)
			if err != nil {
				return nil, err
			}
			h.Filters = filters
			continue
		}
		v, err := argFromFlat(key+"."+name, child)
		if err != nil {
			return nil, err
		}
		h.Args[name] = v
	}
	return h, nil
}

func filtersFromFlat(key string, f *flatNode) ([]FilterConfig, error) {
	if f.value != nil {
		return nil, configErrorf("Invalid setting %q: use %s[0], %s[1], ...", key, key, key)
	}

	type indexed struct {
		cfg FilterConfig
		idx int
	}
	var list []indexed
	for _, name := range f.names() {
		child := f.children[name]
		idx, err := strconv.Atoi(bracketKey(name))
		if !isBracket(name) || err != nil {
			return nil, configErrorf("Bad key %s%s: filters are indexed like [0]", key, name)
		}
		fkey := key + name
		if child.value == nil || *child.value == "" {
			return nil, configErrorf("Missing setting %s", fkey)
		}
		cfg := FilterConfig{Type: *child.value, Key: fkey, Args: map[string]any{}}
		for _, arg := range child.names() {
			v, err := argFromFlat(fkey+"."+arg, child.children[arg])
			if err != nil {
				return nil, err
			}
			cfg.Args[arg] = v
		}
		list = append(list, indexed{cfg: cfg, idx: idx})
	}

	slices.SortFunc(list, func(a, b indexed) int { return cmp.Compare(a.idx, b.idx) })
	out := make([]FilterConfig, len(list))
	for i, item := range list {
		out[i] = item.cfg
	}
	return out, nil
}

// argFromFlat decodes a leaf value. Nested keys under an argument are kept
// as a mapping so that an unknown name is still reported as such.
func argFromFlat(key string, f *flatNode) (any, error) {
	if len(f.children) == 0 {
		if f.value == nil {
			return nil, configErrorf("Missing value for %s", key)
		}
		return decodeFlatValue(*f.value), nil
	}
	if f.value != nil {
		return nil, configErrorf("Invalid setting %q: has both a value and sub-keys", key)
	}
	nested := make(map[string]any, len(f.children))
	for name := range f.children {
		nested[name] = struct{}{}
	}
	return nested, nil
}

func isBracket(s string) bool {
	return strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
}

// bracketKey strips brackets and matching quotes: ['a'] and ["a"] are "a".
func bracketKey(s string) string {
	return unquote(strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")))
}

// String renders a node back into flat settings, mainly for diagnostics.
func (n *Node) String() string {
	var b strings.Builder
	n.writeFlat(&b)
	return b.String()
}

func (n *Node) writeFlat(b *strings.Builder) {
	if h := n.Handler; h != nil {
		fmt.Fprintf(b, "%s = %s\n", h.Key, h.Type)
		for _, name := range slices.Sorted(maps.Keys(h.Args)) {
			fmt.Fprintf(b, "%s.%s = %v\n", h.Key, name, h.Args[name])
		}
		for _, f := range h.Filters {
			fmt.Fprintf(b, "%s = %s\n", f.Key, f.Type)
			for _, name := range slices.Sorted(maps.Keys(f.Args)) {
				fmt.Fprintf(b, "%s.%s = %v\n", f.Key, name, f.Args[name])
			}
		}
	}
	for _, key := range n.StoreKeys() {
		n.Stores[key].writeFlat(b)
	}
}
