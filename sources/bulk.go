package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/go-resty/resty/v2"
)

// BulkClient fetches the yearly crime extracts from the bulk object store.
type BulkClient struct {
	client  *resty.Client
	baseURL string
}

func NewBulkClient(client *resty.Client, baseURL string) *BulkClient {
	return &BulkClient{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/") + "/",
	}
}

// FetchExtract retrieves one named extract and parses it as CSV. A failure
// here is recoverable for the caller: it skips the extract and moves on.
func (c *BulkClient) FetchExtract(ctx context.Context, name string) (*RawTable, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(c.baseURL + name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", name, resp.StatusCode())
	}
	return ParseCSV(name, resp.Body())
}

// ParseCSV parses a CSV payload into a RawTable. The first record is the
// header. Ragged rows are tolerated: short rows leave trailing columns
// absent, long rows drop the overflow.
func ParseCSV(name string, data []byte) (*RawTable, error) {
	// Strip a UTF-8 BOM if the store served one.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	table := &RawTable{Name: name, Columns: header}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
