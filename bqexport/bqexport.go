// Package bqexport uploads a feature table to BigQuery.
package bqexport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/carbocation/segmm/feature"
	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
)

// MaxRetries bounds the attempts at a transiently failing insert.
var MaxRetries uint64 = 5

type WrappedBigQuery struct {
	Context context.Context
	Client  *bigquery.Client
	Project string
	Dataset string
	Table   string
}

// Connect opens a client billed to the project.
func Connect(ctx context.Context, project, dataset, table string) (*WrappedBigQuery, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("connecting to BigQuery: %v", err)
	}

	return &WrappedBigQuery{
		Context: ctx,
		Client:  client,
		Project: project,
		Dataset: dataset,
		Table:   table,
	}, nil
}

func (bq *WrappedBigQuery) Close() error {
	return bq.Client.Close()
}

// Schema has a required sampleid followed by one nullable float per feature.
func Schema(t *feature.Table) bigquery.Schema {
	schema := bigquery.Schema{
		{Name: feature.SampleIDColumn, Type: bigquery.StringFieldType, Required: true},
	}
	for _, c := range t.Columns {
		schema = append(schema, &bigquery.FieldSchema{Name: string(c), Type: bigquery.FloatFieldType})
	}

	return schema
}

// Rows converts the table into insertable rows. Missing values become NULL.
func Rows(t *feature.Table) []*bigquery.ValuesSaver {
	schema := Schema(t)

	out := make([]*bigquery.ValuesSaver, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]bigquery.Value, 0, len(r.Values)+1)
		row = append(row, r.SampleID)
		for _, v := range r.Values {
			if math.IsNaN(v) {
				row = append(row, nil)
				continue
			}
			row = append(row, v)
		}

		out = append(out, &bigquery.ValuesSaver{
			Schema:   schema,
			InsertID: uuid.NewString(),
			Row:      row,
		})
	}

	return out
}

// Export streams every row of t into the destination table, creating the
// table if it does not exist yet.
func (bq *WrappedBigQuery) Export(t *feature.Table) error {
	tbl := bq.Client.Dataset(bq.Dataset).Table(bq.Table)

	if _, err := tbl.Metadata(bq.Context); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("%s.%s.%s: %v", bq.Project, bq.Dataset, bq.Table, err)
		}

		log.Printf("Creating BigQuery table %s.%s.%s\n", bq.Project, bq.Dataset, bq.Table)
		if err := tbl.Create(bq.Context, &bigquery.TableMetadata{Schema: Schema(t)}); err != nil {
			return fmt.Errorf("creating %s.%s.%s: %v", bq.Project, bq.Dataset, bq.Table, err)
		}
	}

	rows := Rows(t)
	insert := func() error {
		err := tbl.Inserter().Put(bq.Context, rows)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	// InsertIDs are fixed before the first attempt, so a retried batch is
	// deduplicated by BigQuery.
	retry := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), MaxRetries), bq.Context)
	if err := backoff.Retry(insert, retry); err != nil {
		return fmt.Errorf("inserting into %s.%s.%s: %v", bq.Project, bq.Dataset, bq.Table, err)
	}
	log.Printf("Inserted %d rows into %s.%s.%s\n", len(t.Rows), bq.Project, bq.Dataset, bq.Table)

	return nil
}

// isRetryable reports server-side and rate limiting failures.
func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
