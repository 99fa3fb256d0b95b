// Package module discovers Terraform modules under a root directory and
// classifies each as stateful or stateless.
package module

// Kind classifies a Module by whether Terraform manages persistent state
// for it.
type Kind int

const (
	// Stateless modules are used only by reference from other modules.
	Stateless Kind = iota
	// Stateful modules declare a backend block and are processed directly.
	Stateful
)

func (k Kind) String() string {
	if k == Stateful {
		return "stateful"
	}

	return "stateless"
}

// Module is a filesystem directory containing one or more .tf files,
// treated as a unit of Terraform execution. Canonical path is always
// relative to a fixed anchor (the project root) and is immutable once the
// scan completes.
type Module struct {
	// Path is the canonical, slash-separated path relative to the project
	// root. It is used as the map key and graph node identity everywhere
	// in solarboat.
	Path string
	Kind Kind
	// Files is the set of *.tf files directly contained in this module's
	// directory, relative to Path.
	Files []string
}

// Name returns the last path element, useful for short log output.
func (m Module) Name() string {
	if m.Path == "." || m.Path == "" {
		return "."
	}

	for i := len(m.Path) - 1; i >= 0; i-- {
		if m.Path[i] == '/' {
			return m.Path[i+1:]
		}
	}

	return m.Path
}
