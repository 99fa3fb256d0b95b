package module

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gruntwork-io/solarboat/internal/errors"
)

// backendBlockPattern matches an active (non-comment) `backend "..." {`
// declaration, tolerant of arbitrary whitespace between tokens. Detection
// is deliberately textual rather than a full HCL parse.
var backendBlockPattern = regexp.MustCompile(`\bbackend\s+"[^"]*"\s*\{`)

// Scan walks root depth-first and returns every discovered Module, ordered
// ascending by canonical path so every consumer sees a deterministic order
// without re-sorting.
func Scan(root string) ([]Module, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	var modules []Module

	ancestors := map[string]bool{}

	if err := walk(absRoot, absRoot, ancestors, &modules); err != nil {
		return nil, err
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Path < modules[j].Path })

	return modules, nil
}

func walk(root, dir string, ancestors map[string]bool, out *[]Module) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		// Broken symlink or permission issue: skip this branch rather than
		// fail the whole scan.
		return nil
	}

	if ancestors[real] {
		// Symlink cycle: we've already visited this real path higher up
		// the current walk stack.
		return nil
	}

	ancestors[real] = true
	defer delete(ancestors, real)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.WithStackTrace(err)
	}

	var tfFiles []string

	var subdirs []string

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		if entry.IsDir() {
			subdirs = append(subdirs, filepath.Join(dir, name))
			continue
		}

		if entry.Type()&os.ModeSymlink != 0 {
			// A symlink to a directory is walked like a real directory; the
			// ancestors set in walk breaks cycles. A symlink to a .tf file
			// falls through and counts like a regular file.
			if info, statErr := os.Stat(filepath.Join(dir, name)); statErr == nil && info.IsDir() {
				subdirs = append(subdirs, filepath.Join(dir, name))
				continue
			}
		} else if !entry.Type().IsRegular() {
			continue
		}

		if strings.HasSuffix(name, ".tf") {
			tfFiles = append(tfFiles, name)
		}
	}

	if len(tfFiles) > 0 {
		sort.Strings(tfFiles)

		kind := Stateless

		for _, f := range tfFiles {
			stateful, err := containsActiveBackendBlock(filepath.Join(dir, f))
			if err != nil {
				return err
			}

			if stateful {
				kind = Stateful
				break
			}
		}

		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return errors.WithStackTrace(err)
		}

		*out = append(*out, Module{
			Path:  filepath.ToSlash(rel),
			Kind:  kind,
			Files: tfFiles,
		})
	}

	for _, sub := range subdirs {
		if err := walk(root, sub, ancestors, out); err != nil {
			return err
		}
	}

	return nil
}

func containsActiveBackendBlock(path string) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, errors.WithStackTrace(err)
	}

	for _, line := range strings.Split(string(content), "\n") {
		code := stripLineComment(line)
		if backendBlockPattern.MatchString(code) {
			return true, nil
		}
	}

	return false, nil
}

// stripLineComment truncates line at the first unquoted "#" or "//",
// leaving only the active code portion. It is a deliberately simple,
// line-oriented pass and does not handle multi-line strings.
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
