// Package config implements discovery, parsing, validation, path
// normalization, and merge-resolution of global and per-module
// configuration.
package config

// Section is the shape shared by both the `global` key and each value
// under `modules` in the on-disk document.
type Section struct {
	IgnoreWorkspaces  []string            `json:"ignore_workspaces" mapstructure:"ignore_workspaces"`
	VarFiles          []string            `json:"var_files" mapstructure:"var_files"`
	WorkspaceVarFiles map[string][]string `json:"workspace_var_files" mapstructure:"workspace_var_files"`
}

// Document is the parsed shape of the on-disk configuration file: exactly
// two optional top-level keys, `global` and `modules`.
type Document struct {
	Global  *Section            `json:"global"`
	Modules map[string]*Section `json:"modules"`
}

// reservedWorkspaceNames are workspace names terraform itself gives
// meaning to; using them as config overrides triggers a validation
// warning.
var reservedWorkspaceNames = map[string]bool{
	"default":   true,
	"terraform": true,
}
