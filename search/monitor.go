package search

import "github.com/poiesic/filingvec/core"

// Monitor provides hooks to observe the stages of a hybrid search.
// Implement this interface to inspect intermediate candidate sets.
type Monitor interface {
	Start(query string, keywords []string)
	AfterSemanticStage(candidates []*core.ScoredChunk)
	Finish(results []*core.ScoredChunk)
}

// noopMonitor is a no-op implementation of Monitor.
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ []string)               {}
func (n *noopMonitor) AfterSemanticStage(_ []*core.ScoredChunk) {}
func (n *noopMonitor) Finish(_ []*core.ScoredChunk)             {}
