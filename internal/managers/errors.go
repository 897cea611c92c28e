package managers

import "errors"

var (
	// ErrUnknownSection means a manager was constructed with a section name
	// its document type does not define.
	ErrUnknownSection = errors.New("managers: unknown section")

	// ErrSectionNotAllowed means an upsert requested a section outside the
	// manager's allowed set.
	ErrSectionNotAllowed = errors.New("managers: section not allowed")

	// ErrIncludeEmptyPolicy means GetForRefresh was called without choosing
	// where never-updated records go relative to outdated ones. There is no
	// default: the caller has to pick.
	ErrIncludeEmptyPolicy = errors.New("managers: include-empty policy not specified")
)
