package manifest

import "errors"

// Sentinel errors for the manifest package
var (
	// ErrNoRepositories indicates the manifest lists no repositories
	ErrNoRepositories = errors.New("manifest must contain at least one repository")

	// ErrEmptyURL indicates a repository is missing the required URL field
	ErrEmptyURL = errors.New("repository URL cannot be empty")

	// ErrDuplicateName indicates two repositories would write to the same output directory
	ErrDuplicateName = errors.New("repository name is used more than once")

	// ErrInvalidName indicates a repository name that is not a single path element
	ErrInvalidName = errors.New("repository name must be a single directory name")

	// ErrInvalidFormat indicates the manifest file is not valid YAML or JSON
	ErrInvalidFormat = errors.New("manifest must be valid YAML or JSON")

	// ErrFileNotFound indicates the manifest file does not exist
	ErrFileNotFound = errors.New("manifest file not found")

	// ErrUnsupportedExt indicates an unsupported file extension
	ErrUnsupportedExt = errors.New("unsupported file extension (use .yaml, .yml, or .json)")
)
