package sources

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-resty/resty/v2"
)

// datastoreResponse is the CKAN datastore_search envelope.
type datastoreResponse struct {
	Success bool            `json:"success"`
	Result  datastoreResult `json:"result"`
}

type datastoreResult struct {
	Fields  []datastoreField `json:"fields"`
	Records []map[string]any `json:"records"`
}

type datastoreField struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// LiveClient fetches the most recent incident records from the city's open
// data API (CKAN datastore).
type LiveClient struct {
	client     *resty.Client
	apiURL     string
	resourceID string
	limit      int
}

func NewLiveClient(client *resty.Client, apiURL, resourceID string, limit int) *LiveClient {
	return &LiveClient{
		client:     client,
		apiURL:     apiURL,
		resourceID: resourceID,
		limit:      limit,
	}
}

// FetchLatest issues one bounded datastore_search request and returns the
// result records as a RawTable. Any failure is the live feed's failure; the
// pipeline continues on the historical baseline without it.
func (c *LiveClient) FetchLatest(ctx context.Context) (*RawTable, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"resource_id": c.resourceID,
			"limit":       strconv.Itoa(c.limit),
		}).
		SetResult(&datastoreResponse{}).
		Get(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("fetch live feed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch live feed: status %d", resp.StatusCode())
	}

	result, ok := resp.Result().(*datastoreResponse)
	if !ok || result == nil {
		return nil, fmt.Errorf("fetch live feed: unparsable response")
	}
	if !result.Success {
		return nil, fmt.Errorf("fetch live feed: api reported failure")
	}
	if result.Result.Records == nil {
		return nil, fmt.Errorf("fetch live feed: response missing records")
	}

	table := &RawTable{Name: "live", Rows: result.Result.Records}
	table.Columns = recordColumns(result.Result.Fields, result.Result.Records)
	return table, nil
}

// recordColumns derives a stable column order: the API's field list when
// present, extended with any keys that appear only in records.
func recordColumns(fields []datastoreField, records []map[string]any) []string {
	var cols []string
	seen := map[string]bool{}
	for _, f := range fields {
		if f.ID != "" && !seen[f.ID] {
			cols = append(cols, f.ID)
			seen[f.ID] = true
		}
	}
	var extras []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				extras = append(extras, k)
				seen[k] = true
			}
		}
	}
	// Map iteration order is random; keep discovered extras stable.
	sort.Strings(extras)
	return append(cols, extras...)
}
