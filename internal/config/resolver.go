package config

import (
	"path/filepath"

	"github.com/gruntwork-io/solarboat/util"
)

// CLIOverrides carries the per-command CLI flags that take precedence over
// the config file.
type CLIOverrides struct {
	// IgnoreWorkspaces, when non-nil, replaces both the module and global
	// ignore sets entirely.
	IgnoreWorkspaces []string
	// VarFiles, when non-nil, replaces the config-derived var file list
	// entirely.
	VarFiles []string
}

// Resolver is a read-only view produced by merging global config, module
// config, and CLI flags. It holds no mutable state once built, so it can
// be freely shared across the executor's worker goroutines without
// synchronization.
type Resolver struct {
	store *Store
	cli   CLIOverrides
}

// NewResolver builds a Resolver over store with the given CLI overrides.
func NewResolver(store *Store, cli CLIOverrides) *Resolver {
	if store == nil {
		store = &Store{Modules: map[string]Section{}}
	}

	return &Resolver{store: store, cli: cli}
}

// IsIgnored reports whether workspace ws should be skipped for the module
// at modulePath. A CLI-supplied ignore list replaces both the module and
// global ignore sets entirely.
func (r *Resolver) IsIgnored(modulePath, ws string) bool {
	if r.cli.IgnoreWorkspaces != nil {
		return util.ListContainsElement(r.cli.IgnoreWorkspaces, ws)
	}

	moduleSection := r.store.Modules[modulePath]

	return util.ListContainsElement(moduleSection.IgnoreWorkspaces, ws) ||
		util.ListContainsElement(r.store.Global.IgnoreWorkspaces, ws)
}

// VarFilesFor returns the ordered list of -var-file arguments that apply
// to (modulePath, ws): general var files (module overrides global)
// followed by workspace-specific var files (module overrides global), with
// paths resolved relative to the config file's directory. A CLI override,
// if provided, replaces the computed list entirely. Order matters: later
// files override earlier ones in terraform.
func (r *Resolver) VarFilesFor(modulePath, ws string) []string {
	if r.cli.VarFiles != nil {
		return r.cli.VarFiles
	}

	moduleSection := r.store.Modules[modulePath]

	general := moduleSection.VarFiles
	if general == nil {
		general = r.store.Global.VarFiles
	}

	specific := moduleSection.WorkspaceVarFiles[ws]
	if specific == nil {
		specific = r.store.Global.WorkspaceVarFiles[ws]
	}

	combined := make([]string, 0, len(general)+len(specific))
	combined = append(combined, resolvePaths(r.store.ConfigDir, general)...)
	combined = append(combined, resolvePaths(r.store.ConfigDir, specific)...)

	return combined
}

func resolvePaths(configDir string, paths []string) []string {
	out := make([]string, len(paths))

	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
			continue
		}

		out[i] = filepath.Join(configDir, p)
	}

	return out
}
