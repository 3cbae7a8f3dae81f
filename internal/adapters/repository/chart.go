package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/types"
	"github.com/okian/tradeval/pkg/metrics"
)

// Treap ordering: composite DESC, then asset id ASC. "less" means ranks
// earlier, so in-order traversal yields the chart from best to worst.
// Priorities hash the asset id, which keeps the tree balanced in expectation
// regardless of score distribution.

type node struct {
	id        model.AssetID
	composite float64
	prio      uint64
	left      *node
	right     *node
	size      int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aScore float64, aID model.AssetID, bScore float64, bID model.AssetID) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func priority(id model.AssetID) uint64 {
	return xxhash.Sum64String(string(id))
}

func insert(n *node, id model.AssetID, score float64) *node {
	if n == nil {
		return &node{id: id, composite: score, prio: priority(id), size: 1}
	}
	if less(score, id, n.composite, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id model.AssetID, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.composite && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.composite, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// position returns the 1-based in-order position of (score, id).
func position(n *node, id model.AssetID, score float64) int {
	before := 0
	for n != nil {
		switch {
		case score == n.composite && id == n.id:
			return before + nsize(n.left) + 1
		case less(score, id, n.composite, n.id):
			n = n.left
		default:
			before += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectTopN appends up to limit assets in chart order.
func collectTopN(n *node, limit int, byID map[model.AssetID]model.ScoredAsset, out *[]types.ChartEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, byID, out)
	if len(*out) < limit {
		if s, ok := byID[n.id]; ok {
			*out = append(*out, types.NewChartEntry(len(*out)+1, s))
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, byID, out)
	}
}

type leagueChart struct {
	root *node
	byID map[model.AssetID]model.ScoredAsset
}

var _ Chart = (*ChartStore)(nil)

// ChartStore keeps one treap per league behind a single lock.
type ChartStore struct {
	mu                    sync.RWMutex
	leagues               map[string]*leagueChart
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewChartStore constructs a chart store and starts its metrics updater.
func NewChartStore(ctx context.Context, opts ...Option) *ChartStore {
	s := &ChartStore{
		leagues:               make(map[string]*leagueChart),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *ChartStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Upsert inserts or repositions an asset in O(log n) expected time.
func (s *ChartStore) Upsert(_ context.Context, leagueID string, scored model.ScoredAsset) error {
	id := scored.ID()
	if id == "" || math.IsNaN(scored.Composite) || math.IsInf(scored.Composite, 0) {
		return fmt.Errorf("%w: chart entry %q composite %v", ErrInvalidRecord, id, scored.Composite)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.leagues[leagueID]
	if !ok {
		c = &leagueChart{byID: make(map[model.AssetID]model.ScoredAsset)}
		s.leagues[leagueID] = c
	}
	if old, ok := c.byID[id]; ok {
		c.root = deleteNode(c.root, id, old.Composite)
	}
	c.byID[id] = scored
	c.root = insert(c.root, id, scored.Composite)
	return nil
}

// Remove drops an asset, reporting whether it was present.
func (s *ChartStore) Remove(_ context.Context, leagueID string, id model.AssetID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.leagues[leagueID]
	if !ok {
		return false
	}
	old, ok := c.byID[id]
	if !ok {
		return false
	}
	c.root = deleteNode(c.root, id, old.Composite)
	delete(c.byID, id)
	return true
}

// Retain drops every row of a league whose asset is not in keep and returns
// how many were dropped.
func (s *ChartStore) Retain(_ context.Context, leagueID string, keep map[model.AssetID]struct{}) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.leagues[leagueID]
	if !ok {
		return 0
	}
	dropped := 0
	for id, old := range c.byID {
		if _, ok := keep[id]; ok {
			continue
		}
		c.root = deleteNode(c.root, id, old.Composite)
		delete(c.byID, id)
		dropped++
	}
	return dropped
}

// Rank returns the chart row for an asset in O(log n) expected time.
func (s *ChartStore) Rank(_ context.Context, leagueID string, id model.AssetID) (types.ChartEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.leagues[leagueID]
	if !ok {
		return types.ChartEntry{}, &model.NotFoundError{Resource: "league chart", ID: leagueID}
	}
	scored, ok := c.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.ChartEntry{}, &model.NotFoundError{Resource: "chart entry", ID: string(id)}
	}
	return types.NewChartEntry(position(c.root, id, scored.Composite), scored), nil
}

// TopN returns the first n rows of a league chart.
func (s *ChartStore) TopN(_ context.Context, leagueID string, n int) ([]types.ChartEntry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.leagues[leagueID]
	if !ok {
		return []types.ChartEntry{}, nil
	}
	out := make([]types.ChartEntry, 0, min(n, len(c.byID)))
	collectTopN(c.root, n, c.byID, &out)
	return out, nil
}

// Count returns the number of charted assets in a league.
func (s *ChartStore) Count(_ context.Context, leagueID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.leagues[leagueID]; ok {
		return len(c.byID)
	}
	return 0
}

// Total returns the number of charted assets across leagues.
func (s *ChartStore) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, c := range s.leagues {
		total += len(c.byID)
	}
	return total
}

func (s *ChartStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *ChartStore) updateMetrics() {
	s.mu.RLock()
	counts := make(map[string]int, len(s.leagues))
	for id, c := range s.leagues {
		counts[id] = len(c.byID)
	}
	s.mu.RUnlock()

	for id, n := range counts {
		metrics.UpdateChartEntries(id, n)
	}
}
