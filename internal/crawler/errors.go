package crawler

import "errors"

var (
	// ErrPageStatus is returned by link sources when a seed page answers
	// with an error status.
	ErrPageStatus = errors.New("page returned error status")

	// ErrNilCollaborator is returned by NewSpider when a required
	// collaborator is missing.
	ErrNilCollaborator = errors.New("sitemap source, link source and verifier are required")
)
