package graph

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gruntwork-io/solarboat/internal/errors"
	"github.com/gruntwork-io/solarboat/internal/module"
)

var moduleBlockHeader = regexp.MustCompile(`^\s*module\s+"([^"]+)"\s*\{`)
var sourceAttr = regexp.MustCompile(`^\s*source\s*=\s*"([^"]*)"`)

// Build constructs the dependency graph for the given root and modules:
// for every .tf file in every module, it parses `module "name" { ...
// source = "..." ... }` blocks and records an edge to the module that
// source resolves to, when that path is local and a module was discovered
// there.
func Build(root string, modules []module.Module) (*Graph, error) {
	g := New(modules)

	for i, m := range modules {
		for _, f := range m.Files {
			sources, err := parseModuleSources(filepath.Join(root, m.Path, f))
			if err != nil {
				return nil, err
			}

			for _, src := range sources {
				if !isLocalSource(src) {
					continue
				}

				resolved := resolveLocalSource(root, m.Path, src)

				if j, ok := g.IndexOf(resolved); ok {
					g.AddEdge(i, j)
				}
			}
		}
	}

	return g, nil
}

// isLocalSource reports whether a Terraform module source string refers to
// a local filesystem path, as opposed to a registry shorthand, git:: URL,
// https:// URL, or other non-local reference.
func isLocalSource(src string) bool {
	if strings.HasPrefix(src, "./") || strings.HasPrefix(src, "../") {
		return true
	}

	// Besides "./" and "../" sources, only absolute paths count as local.
	// Any other bare path, whether a registry shorthand or a relative
	// directory written without a "./" prefix, is treated as non-local.
	if strings.Contains(src, "://") || strings.Contains(src, "::") {
		return false
	}

	if filepath.IsAbs(src) {
		// Absolute paths outside the tree never match a discovered
		// module, so resolveLocalSource/IndexOf drops them.
		return true
	}

	return false
}

func resolveLocalSource(root, fromModulePath, src string) string {
	abs := filepath.Clean(filepath.Join(root, fromModulePath, src))
	if filepath.IsAbs(src) {
		abs = filepath.Clean(src)
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}

	return filepath.ToSlash(rel)
}

// parseModuleSources scans a .tf file for `module "name" { ... }` blocks
// using a line-oriented, brace-balancing parser and returns every
// `source = "..."` value found inside such a block. A full HCL parse is
// deliberately avoided; this only needs the block headers and one
// attribute.
func parseModuleSources(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	var sources []string

	lines := strings.Split(string(content), "\n")

	for i := 0; i < len(lines); i++ {
		line := stripLineComment(lines[i])
		if !moduleBlockHeader.MatchString(line) {
			continue
		}

		depth := strings.Count(line, "{") - strings.Count(line, "}")
		j := i + 1

		for j < len(lines) && depth > 0 {
			blockLine := stripLineComment(lines[j])

			if m := sourceAttr.FindStringSubmatch(blockLine); m != nil {
				sources = append(sources, m[1])
			}

			depth += strings.Count(blockLine, "{") - strings.Count(blockLine, "}")
			j++
		}

		i = j - 1
	}

	return sources, nil
}

// stripLineComment truncates line at the first unquoted "#" or "//".
// Kept local rather than shared with the module package; it is too small
// to be worth a cross-package helper.
func stripLineComment(line string) string {
	inQuotes := false

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case '#':
			if !inQuotes {
				return line[:i]
			}
		case '/':
			if !inQuotes && i+1 < len(line) && line[i+1] == '/' {
				return line[:i]
			}
		}
	}

	return line
}
