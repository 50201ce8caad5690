package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/bajo3/Meli-test/internal/gateway"
	"github.com/bajo3/Meli-test/internal/models"
	"github.com/bajo3/Meli-test/internal/util"

	"go.uber.org/zap"
)

// batchSize is the remote service's hard cap on ids per /items?ids= request.
const batchSize = 20

// Fetcher resolves listing identifiers into full item records.
type Fetcher struct {
	gw     gateway.Caller
	logger *zap.Logger
}

func NewFetcher(gw gateway.Caller) *Fetcher {
	return &Fetcher{
		gw:     gw,
		logger: util.GetLogger(),
	}
}

// itemEnvelope wraps one item in a batch response. Code mirrors the HTTP
// status the remote service resolved for that id.
type itemEnvelope struct {
	Code int             `json:"code"`
	Body json.RawMessage `json:"body"`
}

// FetchDetails resolves ids into Listings, one gateway call per chunk of 20.
// Chunks are fetched concurrently and the result order is unspecified.
// Envelopes with a non-success code are dropped, so the result may be shorter
// than the input.
func (f *Fetcher) FetchDetails(ctx context.Context, ids []string) ([]models.Listing, error) {
	if len(ids) == 0 {
		return []models.Listing{}, nil
	}

	ctx, span := util.StartSpan(ctx, "Fetcher.FetchDetails")
	defer span.End()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		out      = make([]models.Listing, 0, len(ids))
	)

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		group := ids[start:end]

		wg.Add(1)
		go func() {
			defer wg.Done()

			raw, err := f.gw.Call(ctx, http.MethodGet, "/items?ids="+strings.Join(group, ","), nil)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			var envelopes []itemEnvelope
			if err := json.Unmarshal(raw, &envelopes); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to decode items batch: %w", err)
				}
				mu.Unlock()
				return
			}

			batch := make([]models.Listing, 0, len(envelopes))
			for _, env := range envelopes {
				if env.Code != http.StatusOK {
					f.logger.Debug("dropping failed batch entry", zap.Int("code", env.Code))
					continue
				}
				var detail models.ItemDetail
				if err := json.Unmarshal(env.Body, &detail); err != nil {
					f.logger.Warn("failed to decode item body", zap.Error(err))
					continue
				}
				batch = append(batch, detail.ToListing())
			}

			mu.Lock()
			out = append(out, batch...)
			mu.Unlock()
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

type searchResponse struct {
	Results []string `json:"results"`
	Paging  struct {
		Total  int `json:"total"`
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"paging"`
}

// SearchActiveIDs collects the ids of the seller's active listings, following
// the search pagination until the reported total is reached.
func (f *Fetcher) SearchActiveIDs(ctx context.Context, userID string, pageSize int) ([]string, error) {
	ctx, span := util.StartSpan(ctx, "Fetcher.SearchActiveIDs")
	defer span.End()

	ids := make([]string, 0, pageSize)
	offset := 0

	for {
		path := fmt.Sprintf("/users/%s/items/search?status=active&limit=%d&offset=%d", userID, pageSize, offset)
		raw, err := f.gw.Call(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var res searchResponse
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("failed to decode search response: %w", err)
		}

		ids = append(ids, res.Results...)

		if len(res.Results) == 0 || len(ids) >= res.Paging.Total {
			break
		}
		offset += len(res.Results)
	}

	return ids, nil
}
