package leaguesim

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/types"
	"github.com/okian/tradeval/pkg/logger"
)

const (
	workerChannelMultiplier = 2
	pollInterval            = 50 * time.Millisecond
)

// waitForRanks repeats rank lookups for assets not yet on the chart until
// all are found or cfg.ChartWait elapses. Assets still missing are returned.
func waitForRanks(ctx context.Context, cfg Config, c *client, leagueID string, ids []model.AssetID) (map[model.AssetID]types.ChartEntry, []model.AssetID) {
	found := make(map[model.AssetID]types.ChartEntry, len(ids))
	pending := ids
	deadline := time.Now().Add(cfg.ChartWait)

	for len(pending) > 0 {
		for id, e := range retrieveRanks(ctx, cfg, c, leagueID, pending) {
			found[id] = e
		}
		missing := pending[:0:0]
		for _, id := range pending {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		pending = missing
		if len(pending) == 0 || time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return found, pending
		case <-time.After(pollInterval):
		}
	}
	return found, pending
}

// retrieveRanks looks up chart rows for ids with a pool of workers. Failed
// lookups are left out of the result.
func retrieveRanks(ctx context.Context, cfg Config, c *client, leagueID string, ids []model.AssetID) map[model.AssetID]types.ChartEntry {
	log := logger.Get().Named("leaguesim")
	var (
		mu       sync.Mutex
		out      = make(map[model.AssetID]types.ChartEntry, len(ids))
		idChan   = make(chan model.AssetID, cfg.Workers*workerChannelMultiplier)
		wg       sync.WaitGroup
		leagueQS = url.QueryEscape(leagueID)
	)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idChan {
				var entry types.ChartEntry
				err := c.get(ctx, fmt.Sprintf("/chart/%s?league=%s", url.PathEscape(string(id)), leagueQS), &entry)
				if err != nil {
					if cfg.Verbose {
						log.Debug(ctx, "rank lookup failed", logger.String("asset", string(id)), logger.Error(err))
					}
					continue
				}
				mu.Lock()
				out[id] = entry
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(idChan)
		for _, id := range ids {
			select {
			case <-ctx.Done():
				return
			case idChan <- id:
			}
		}
	}()
	wg.Wait()
	return out
}

// topChart fetches the first n chart rows.
func topChart(ctx context.Context, c *client, leagueID string, n int) ([]types.ChartEntry, error) {
	var page struct {
		Entries []types.ChartEntry `json:"entries"`
	}
	err := c.get(ctx, fmt.Sprintf("/chart?league=%s&limit=%d", url.QueryEscape(leagueID), n), &page)
	return page.Entries, err
}
