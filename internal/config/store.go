package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/gruntwork-io/solarboat/internal/errors"
	"github.com/gruntwork-io/solarboat/internal/logging"
	"github.com/gruntwork-io/solarboat/internal/module"
)

const envVarName = "SOLARBOAT_ENV"

// DiscoverOptions controls how the config store locates its on-disk file.
type DiscoverOptions struct {
	// ExplicitPath, if non-empty, is used verbatim (the --config flag).
	ExplicitPath string
	// NoConfig, if set, skips discovery entirely and yields empty defaults
	// (the --no-config flag).
	NoConfig bool
	// ScanRoot is the directory candidate config file names are resolved
	// against when ExplicitPath is empty.
	ScanRoot string
}

// Discover resolves which config file path to load, honoring the
// SOLARBOAT_ENV environment variable's solarboat.<env>.json / solarboat.json
// fallback chain. Returns "", false when there is nothing to load; a
// missing config file is not an error.
func Discover(opts DiscoverOptions) (string, bool) {
	if opts.NoConfig {
		return "", false
	}

	if opts.ExplicitPath != "" {
		return opts.ExplicitPath, true
	}

	var candidates []string

	if env := os.Getenv(envVarName); env != "" {
		candidates = append(candidates, filepath.Join(opts.ScanRoot, "solarboat."+env+".json"))
	}

	candidates = append(candidates, filepath.Join(opts.ScanRoot, "solarboat.json"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, true
		}
	}

	return "", false
}

// Store is a loaded, path-normalized configuration document plus the
// warnings accumulated while validating it.
type Store struct {
	ConfigDir string
	Global    Section
	Modules   map[string]Section
	Warnings  []string
}

// Load reads and parses the JSON document at path, normalizes every module
// key to a canonical path relative to the config file's directory, and
// validates it, collecting warnings but never failing on anything softer
// than an unparseable file.
func Load(path string, modules []module.Module) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, &errors.ErrConfigParse{Path: path, Err: err}
	}

	var doc Document

	var meta mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		Metadata:         &meta,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	if err := decoder.Decode(generic); err != nil {
		return nil, &errors.ErrConfigParse{Path: path, Err: err}
	}

	configDir := filepath.Dir(path)

	st := &Store{
		ConfigDir: configDir,
		Modules:   map[string]Section{},
	}

	if doc.Global != nil {
		st.Global = *doc.Global
	}

	for key, section := range doc.Modules {
		if section == nil {
			continue
		}

		normalized := normalizeModulePath(configDir, key)
		st.Modules[normalized] = *section
	}

	for _, key := range meta.Unused {
		st.Warnings = append(st.Warnings, "unknown key: "+key)
	}

	st.Warnings = append(st.Warnings, validate(st, configDir, modules)...)

	return st, nil
}

// normalizeModulePath resolves key (as the user wrote it, possibly
// relative or absolute) to a canonical path relative to configDir, the
// same canonicalization the module scanner applies, so lookups by a
// discovered module's canonical path always succeed.
func normalizeModulePath(configDir, key string) string {
	abs := key
	if !filepath.IsAbs(key) {
		abs = filepath.Join(configDir, key)
	}

	rel, err := filepath.Rel(configDir, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}

	return filepath.ToSlash(rel)
}

func validate(st *Store, configDir string, modules []module.Module) []string {
	var warnings []string

	known := map[string]bool{}
	for _, m := range modules {
		known[m.Path] = true
	}

	for path := range st.Modules {
		if !known[path] {
			warnings = append(warnings, "config references unknown module path: "+path)
		}
	}

	checkSection := func(label string, s Section) {
		for _, vf := range s.VarFiles {
			checkVarFileExists(configDir, label, vf, &warnings)
		}

		for ws, files := range s.WorkspaceVarFiles {
			if reservedWorkspaceNames[ws] {
				warnings = append(warnings, label+": workspace_var_files uses reserved workspace name "+ws)
			}

			for _, vf := range files {
				checkVarFileExists(configDir, label, vf, &warnings)
			}
		}

		for _, ws := range s.IgnoreWorkspaces {
			if reservedWorkspaceNames[ws] {
				warnings = append(warnings, label+": ignore_workspaces includes reserved workspace name "+ws)
			}
		}
	}

	checkSection("global", st.Global)

	for path, s := range st.Modules {
		checkSection("module "+path, s)
	}

	return warnings
}

func checkVarFileExists(configDir, label, vf string, warnings *[]string) {
	path := vf
	if !filepath.IsAbs(vf) {
		path = filepath.Join(configDir, vf)
	}

	if _, err := os.Stat(path); err != nil {
		*warnings = append(*warnings, label+": var file does not exist: "+vf)
	}
}

// LogWarnings emits every accumulated warning at Warn level.
func (s *Store) LogWarnings(l logging.Logger) {
	for _, w := range s.Warnings {
		l.Warnf("config: %s", w)
	}
}
