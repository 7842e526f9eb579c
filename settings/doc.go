// Package settings configures a filestorage container from declarative
// settings.
//
// Handler and filter types are looked up by name in a Registry of
// factories. DefaultRegistry knows every built-in backend and filter;
// applications register their own with RegisterHandler and RegisterFilter.
//
// # Flat settings
//
// Key/value settings, as found in INI files or derived from environment
// variables, use dotted keys below a prefix:
//
//	store.handler = local
//	store.handler.base_path = /srv/files
//	store.handler.base_url = https://cdn.example.com/
//	store.handler.filters[0] = RandomizeFilename
//	store.handler.filters[1] = ValidateExtension
//	store.handler.filters[1].extensions = ['jpg', 'png']
//	store['avatars'].handler = memory
//
// Values are decoded as YAML scalars, so lists, integers and booleans work
// and quotes force a string. "store.handler = none" disables a store.
//
//	ok, err := settings.SetupFromSettings(ctx, store, flat, "store", nil)
//	if err != nil {
//		return err
//	}
//	if err := store.FinalizeConfig(ctx); err != nil {
//		return err
//	}
//
// # Documents
//
// LoadYAML, LoadTOML and LoadFile read the same tree as a nested document
// with "handler" and "stores" keys; pass the result to Setup.
//
// Unknown keys are config errors that suggest the closest known name.
package settings
