// Package manifest loads batch files that list several repositories to
// diagram in one invocation.
//
// # Manifest Format
//
// Manifests can be written in YAML or JSON format:
//
//	repositories:
//	  - url: https://github.com/acme/shop.git
//	    branch: main
//	  - url: git@github.com:acme/billing.git
//	    name: billing-core
//	    kinds: [class, sequence]
//	options:
//	  continue_on_error: true
//	  output: ./diagrams
//
// Each repository is rendered into <output>/<name>, where name defaults to
// the last segment of the URL.
//
// # Error Handling
//
// The package defines sentinel errors for common failure cases:
//   - ErrNoRepositories: manifest lists no repositories
//   - ErrEmptyURL: a repository is missing its URL
//   - ErrDuplicateName: two repositories share an explicit name
//   - ErrInvalidFormat: file is not valid YAML/JSON
//   - ErrFileNotFound: manifest file does not exist
//   - ErrUnsupportedExt: unsupported file extension
package manifest
