package lectern

import "errors"

var (
	// ErrConfigRequired is returned when Open is called without a configuration.
	ErrConfigRequired = errors.New("config required")

	// ErrSubjectNameRequired is returned when a subject is created without a
	// display name.
	ErrSubjectNameRequired = errors.New("subject name required")
)
