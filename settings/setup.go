package settings

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/filestorage"
)

// Setup binds the handlers described by node to store and its sub-stores.
// The configuration is not finalized; call store.FinalizeConfig afterwards.
// A nil registry means DefaultRegistry().
func Setup(ctx context.Context, store *filestorage.StorageContainer, node *Node, registry *Registry) error {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if node.Empty() {
		return configErrorf("Missing setting %s.handler", nodeKey(node))
	}
	return setupNode(ctx, store, node, registry)
}

func nodeKey(n *Node) string {
	if n == nil || n.Key == "" {
		return DefaultPrefix
	}
	return n.Key
}

func setupNode(ctx context.Context, store *filestorage.StorageContainer, node *Node, registry *Registry) error {
	if node.Handler == nil {
		return configErrorf("Missing setting %s.handler", nodeKey(node))
	}

	if node.Handler.Disabled() {
		if len(node.Handler.Args) > 0 || len(node.Handler.Filters) > 0 {
			return configErrorf("Invalid setting %s: a disabled handler takes no settings", node.Handler.Key)
		}
		if err := store.Disable(); err != nil {
			return err
		}
	} else {
		h, err := registry.BuildHandler(ctx, node.Handler)
		if err != nil {
			return err
		}
		if err := store.SetHandler(h); err != nil {
			return err
		}
	}

	for _, key := range node.StoreKeys() {
		sub, err := store.Store(key)
		if err != nil {
			return err
		}
		if err := setupNode(ctx, sub, node.Stores[key], registry); err != nil {
			return err
		}
	}
	return nil
}

// SetupFromSettings parses flat settings under prefix and applies them to
// store. Without any matching key the store is disabled and the result is
// false.
func SetupFromSettings(ctx context.Context, store *filestorage.StorageContainer, flat map[string]string, prefix string, registry *Registry) (bool, error) {
	node, err := ParseFlat(flat, prefix)
	if err != nil {
		return false, err
	}
	if node.Empty() {
		return false, store.Disable()
	}
	if err := Setup(ctx, store, node, registry); err != nil {
		return false, err
	}
	return true, nil
}

// LoadYAML reads a settings document in YAML.
func LoadYAML(r io.Reader) (*Node, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, filestorage.NewConfigError(err, "Parsing YAML settings: %v", err)
	}
	return nodeFromDocument(DefaultPrefix, doc)
}

// LoadTOML reads a settings document in TOML. Filters are written as an
// array of tables:
//
//	[handler]
//	type = "local"
//	base_path = "/srv/files"
//
//	[[handler.filters]]
//	type = "validate_extension"
//	extensions = ["png", "jpg"]
//
//	[stores.avatars.handler]
//	type = "memory"
func LoadTOML(r io.Reader) (*Node, error) {
	var doc map[string]any
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, filestorage.NewConfigError(err, "Parsing TOML settings: %v", err)
	}
	return nodeFromDocument(DefaultPrefix, doc)
}

// LoadFile reads a YAML (.yaml, .yml) or TOML (.toml) settings file.
func LoadFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, filestorage.NewConfigError(err, "Reading settings: %v", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".toml":
		return LoadTOML(f)
	default:
		return nil, configErrorf("Reading settings: unsupported file type %q", ext)
	}
}

// Describe renders the node as flat settings.
func Describe(node *Node) string {
	if node.Empty() {
		return fmt.Sprintf("%s.handler = %s\n", nodeKey(node), HandlerNone)
	}
	return node.String()
}
