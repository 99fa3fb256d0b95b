package errors

import "fmt"

// ErrNotAGitRepository is returned by the Git Probe when the scan root is not
// inside a version-controlled working copy.
type ErrNotAGitRepository struct {
	Dir string
}

func (e *ErrNotAGitRepository) Error() string {
	return fmt.Sprintf("%s is not a git repository", e.Dir)
}

// ErrBinaryNotFound is returned when a required external binary (git,
// terraform) cannot be located on PATH.
type ErrBinaryNotFound struct {
	Name string
}

func (e *ErrBinaryNotFound) Error() string {
	return fmt.Sprintf("required binary %q not found on PATH", e.Name)
}

// ErrShallowFallback is a sentinel signaling that the git probe could not
// diff against the configured base ref because the clone is shallow, and
// that the caller should fall back to the recent-commits window or
// treat-all policy.
type ErrShallowFallback struct {
	BaseRef string
	Reason  string
}

func (e *ErrShallowFallback) Error() string {
	return fmt.Sprintf("cannot diff against %s: %s", e.BaseRef, e.Reason)
}

// ErrConfigParse is returned when the configuration file exists but cannot
// be parsed as JSON, or fails structural validation severely enough to be
// fatal.
type ErrConfigParse struct {
	Path string
	Err  error
}

func (e *ErrConfigParse) Error() string {
	return fmt.Sprintf("failed to parse config file %s: %v", e.Path, e.Err)
}

func (e *ErrConfigParse) Unwrap() error {
	return e.Err
}

// ErrNoModulesFound indicates the scan discovered zero Terraform modules.
// It is not fatal: callers should log and exit 0.
type ErrNoModulesFound struct {
	Root string
}

func (e *ErrNoModulesFound) Error() string {
	return fmt.Sprintf("no terraform modules found under %s", e.Root)
}
