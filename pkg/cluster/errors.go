package cluster

import "errors"

var (
	// ErrInvalidParameters is returned before any run when the search parameters are unusable
	ErrInvalidParameters = errors.New("cluster: invalid parameters")

	// ErrEmptyFeatureSet is returned when there are no features to cluster
	ErrEmptyFeatureSet = errors.New("cluster: empty feature set")

	// ErrInvalidAssignment is returned by SetAssignments for a malformed vector
	ErrInvalidAssignment = errors.New("cluster: invalid assignment vector")

	// ErrInsufficientDistinct is returned when seeding cannot find a feature whose
	// descriptor differs from every centroid chosen so far
	ErrInsufficientDistinct = errors.New("cluster: not enough distinct features to seed centroids")

	// ErrNoConfigurations is returned when selecting from an empty result
	ErrNoConfigurations = errors.New("cluster: no configurations to select from")
)
