// Package cluster groups the local features of one image into spatially and
// visually coherent clusters.
//
// Each run is a k-means variant: every feature is compared to every centroid
// by color neighborhood, position, descriptor and scale, the centroids are
// ranked per criterion, and the feature moves to the centroid with the lowest
// weighted rank sum. A search repeats such runs over a range of cluster
// counts and picks the best result with a validity index.
//
//	c, _ := cluster.New(set, cluster.WithClusterRange(2, 6), cluster.WithRepetitions(3))
//	result, _ := c.Search(ctx)
//	best, _ := c.Best(ctx, result)
package cluster

import (
	"fmt"

	"github.com/ken/siftcluster/pkg/core/feature"
	"github.com/ken/siftcluster/pkg/validity"
)

// Unassigned marks a feature that has no cluster yet.
const Unassigned = -1

// Clustering is the lifecycle shared by clustering strategies.
type Clustering interface {
	// CurrentIteration returns the number of completed iterations
	CurrentIteration() int

	// Clusters materializes the current assignment vector
	Clusters() []Cluster

	// SetAssignments replaces the assignment vector
	SetAssignments(assignments []int) error
}

// Cluster is the set of features sharing a cluster index.
type Cluster struct {
	Index    int
	Members  []int
	Centroid *feature.Feature // nil for an empty cluster
}

// IsEmpty reports whether the cluster has no members.
func (c Cluster) IsEmpty() bool {
	return len(c.Members) == 0
}

// Configuration is the output of one clustering run.
type Configuration struct {
	K           int
	Repetition  int
	Iterations  int
	Error       float64 // sum of the chosen scores in the final iteration
	Assignments []int
	Clusters    []Cluster
}

// Partition returns the configuration in the form validity indices score.
func (c Configuration) Partition() validity.Partition {
	return validity.Partition{K: c.K, Assignments: c.Assignments}
}

// assignment is the base state of a clustering strategy: an assignment
// vector over a fixed feature slice plus an iteration counter.
type assignment struct {
	features  []*feature.Feature
	k         int
	iteration int
	labels    []int
}

func newAssignment(features []*feature.Feature, k int) *assignment {
	labels := make([]int, len(features))
	for i := range labels {
		labels[i] = Unassigned
	}
	return &assignment{
		features: features,
		k:        k,
		labels:   labels,
	}
}

func (a *assignment) CurrentIteration() int {
	return a.iteration
}

func (a *assignment) nextIteration() {
	a.iteration++
}

func (a *assignment) SetAssignments(labels []int) error {
	if len(labels) != len(a.features) {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidAssignment, len(labels), len(a.features))
	}
	for i, c := range labels {
		if c < Unassigned || c >= a.k {
			return fmt.Errorf("%w: feature %d has cluster %d, k is %d", ErrInvalidAssignment, i, c, a.k)
		}
	}
	copy(a.labels, labels)
	return nil
}

func (a *assignment) Clusters() []Cluster {
	return materialize(a.features, a.labels, a.k)
}

// Assignments returns a copy of the assignment vector.
func (a *assignment) Assignments() []int {
	out := make([]int, len(a.labels))
	copy(out, a.labels)
	return out
}

// materialize groups features by label and computes each group's mean.
// Unassigned features belong to no cluster.
func materialize(features []*feature.Feature, labels []int, k int) []Cluster {
	clusters := make([]Cluster, k)
	for c := range clusters {
		clusters[c].Index = c
	}
	for i, c := range labels {
		if c == Unassigned {
			continue
		}
		clusters[c].Members = append(clusters[c].Members, i)
	}

	group := make([]*feature.Feature, 0, len(features))
	for c := range clusters {
		group = group[:0]
		for _, i := range clusters[c].Members {
			group = append(group, features[i])
		}
		// Descriptor dimensions are checked when the Clusterer is built.
		clusters[c].Centroid, _ = feature.Mean(group)
	}
	return clusters
}
