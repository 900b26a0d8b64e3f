package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/gcp"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errNotInitialized  = errors.New("bigquery client not initialized")
	errDatasetRequired = errors.New("bigquery dataset is required")
	errTableRequired   = errors.New("bigquery table name is required")
)

// Row is one streamed row. BigQuery drops rows that repeat an InsertID within
// its dedup window, so redelivered events should reuse the event id.
type Row struct {
	InsertID string
	Value    any
}

// Client streams rows into tables of a single dataset.
type Client struct {
	client      *bigquery.Client
	dataset     *bigquery.Dataset
	orderEvents string
}

// NewClient connects and checks the dataset and order events table exist.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project, err := gcp.ProjectID(cfg.ProjectID, gcpCfg.ProjectID)
	if err != nil {
		return nil, err
	}
	datasetID := strings.TrimSpace(cfg.DatasetID)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	table := strings.TrimSpace(cfg.OrderEventsTable)
	if table == "" {
		return nil, errTableRequired
	}

	bq, err := bigquery.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: bq, dataset: bq.Dataset(datasetID), orderEvents: table}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project": project,
			"dataset": datasetID,
			"table":   table,
		}), "bigquery client initialized")
	}
	return c, nil
}

// Ping reads the dataset and table metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return lookupError("dataset", c.dataset.DatasetID, err)
	}
	if _, err := c.dataset.Table(c.orderEvents).Metadata(ctx); err != nil {
		return lookupError("table", c.orderEvents, err)
	}
	return nil
}

func lookupError(kind, name string, err error) error {
	if gcp.IsNotFound(err) {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// InsertRows streams rows into table using the `bigquery` struct tags of each
// Value.
func (c *Client) InsertRows(ctx context.Context, table string, rows []Row) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, savers(rows))
}

func savers(rows []Row) []*bigquery.StructSaver {
	out := make([]*bigquery.StructSaver, 0, len(rows))
	for _, row := range rows {
		out = append(out, &bigquery.StructSaver{Struct: row.Value, InsertID: row.InsertID})
	}
	return out
}

func (c *Client) OrderEventsTable() string {
	if c == nil {
		return ""
	}
	return c.orderEvents
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
