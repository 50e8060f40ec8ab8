// Package grouping partitions the cards of one tick into hands by spatial
// proximity.
package grouping

import (
	"errors"
	"fmt"

	"github.com/ayusman/cardsight/internal/geometry"
)

// ErrUnknownPolicy is returned by ParseSingletonPolicy.
var ErrUnknownPolicy = errors.New("unknown singleton policy")

// SingletonPolicy selects how single-card components are presented.
type SingletonPolicy string

const (
	// SingletonsMerged collects every singleton into one unassigned group,
	// such as a dealer's up-card.
	SingletonsMerged SingletonPolicy = "merge"

	// SingletonsSeparate keeps every singleton as its own numbered hand.
	SingletonsSeparate SingletonPolicy = "separate"
)

// ParseSingletonPolicy returns the policy named by s.
func ParseSingletonPolicy(s string) (SingletonPolicy, error) {
	switch p := SingletonPolicy(s); p {
	case SingletonsMerged, SingletonsSeparate:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Partition is the list of connected components of a tick's proximity
// graph. Each component holds box indices.
type Partition [][]int

// Layout is a presentation of a Partition.
type Layout struct {
	Hands      [][]int `json:"hands"`
	Unassigned []int   `json:"unassigned,omitempty"`
}

// Resolve builds an undirected graph with an edge between boxes i and j when
// their overlap is at least threshold, and returns its connected components.
//
// Components are ordered by their lowest index. Indices within a component
// are in traversal order, which callers must not rely on.
func Resolve(boxes []geometry.Rect, threshold float64) Partition {
	n := len(boxes)
	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if geometry.Overlap(boxes[i], boxes[j]) >= threshold {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	visited := make([]bool, n)
	var parts Partition
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		var group []int
		stack := []int{start}
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[node] {
				continue
			}
			visited[node] = true
			group = append(group, node)

			for _, next := range adj[node] {
				if !visited[next] {
					stack = append(stack, next)
				}
			}
		}
		parts = append(parts, group)
	}

	return parts
}

// Classify presents the partition under policy. An unrecognized policy is
// treated as SingletonsMerged.
func (p Partition) Classify(policy SingletonPolicy) Layout {
	if policy == SingletonsSeparate {
		hands := make([][]int, len(p))
		copy(hands, p)
		return Layout{Hands: hands}
	}

	var layout Layout
	for _, group := range p {
		if len(group) >= 2 {
			layout.Hands = append(layout.Hands, group)
			continue
		}
		layout.Unassigned = append(layout.Unassigned, group...)
	}
	if layout.Hands == nil {
		layout.Hands = [][]int{}
	}
	return layout
}

// Len returns the number of indices covered by the partition.
func (p Partition) Len() int {
	n := 0
	for _, g := range p {
		n += len(g)
	}
	return n
}
