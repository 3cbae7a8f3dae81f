package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/tradeval/internal/domain/model"
)

type leagueRecord struct {
	league  model.League
	catalog map[model.AssetID]model.Asset
}

// MemoryLeagueStore keeps validated league snapshots in memory.
type MemoryLeagueStore struct {
	mu      sync.RWMutex
	leagues map[string]*leagueRecord
}

// NewMemoryLeagueStore returns an empty league store.
func NewMemoryLeagueStore() *MemoryLeagueStore {
	return &MemoryLeagueStore{leagues: make(map[string]*leagueRecord)}
}

// PutLeague validates and replaces the snapshot for league.ID.
func (s *MemoryLeagueStore) PutLeague(_ context.Context, league model.League) error {
	settings, err := league.Settings.Normalized()
	if err != nil {
		return err
	}
	league.Settings = settings
	if err := league.Validate(); err != nil {
		return err
	}
	league.Teams = append([]model.TeamProfile(nil), league.Teams...)
	league.Assets = append([]model.Asset(nil), league.Assets...)
	rec := &leagueRecord{
		league:  league,
		catalog: make(map[model.AssetID]model.Asset, len(league.Assets)),
	}
	for i := range league.Teams {
		league.Teams[i].LeagueSettings = league.Settings
	}
	for _, a := range league.Assets {
		rec.catalog[a.ID()] = a
	}

	s.mu.Lock()
	s.leagues[league.ID] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryLeagueStore) get(leagueID string) (*leagueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.leagues[leagueID]
	if !ok {
		return nil, &model.NotFoundError{Resource: "league", ID: leagueID}
	}
	return rec, nil
}

// League returns the stored snapshot.
func (s *MemoryLeagueStore) League(_ context.Context, leagueID string) (model.League, error) {
	rec, err := s.get(leagueID)
	if err != nil {
		return model.League{}, err
	}
	return rec.league, nil
}

// LeagueIDs returns the stored league ids in ascending order.
func (s *MemoryLeagueStore) LeagueIDs(_ context.Context) []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.leagues))
	for id := range s.leagues {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Asset resolves one catalog asset.
func (s *MemoryLeagueStore) Asset(_ context.Context, leagueID string, id model.AssetID) (model.Asset, error) {
	rec, err := s.get(leagueID)
	if err != nil {
		return model.Asset{}, err
	}
	a, ok := rec.catalog[id]
	if !ok {
		return model.Asset{}, &model.NotFoundError{Resource: "asset", ID: string(id)}
	}
	return a, nil
}
