package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// Archiver implements domain.SignalArchiver by writing each cycle's ranked
// signals as one JSON-lines object under signals/<date>/<time>.jsonl.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewArchiver creates an Archiver writing to the client's bucket. An empty
// prefix defaults to "signals".
func NewArchiver(c *Client, prefix string) *Archiver {
	if prefix == "" {
		prefix = "signals"
	}
	return &Archiver{
		client: c.S3(),
		bucket: c.Bucket(),
		prefix: prefix,
	}
}

var _ domain.SignalArchiver = (*Archiver)(nil)

// ArchiveSignals uploads the cycle's signals. Empty cycles are skipped so the
// archive only holds cycles that found something.
func (a *Archiver) ArchiveSignals(ctx context.Context, cycleAt time.Time, signals []domain.OpportunitySignal) error {
	if len(signals) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, sig := range signals {
		if err := enc.Encode(sig); err != nil {
			return fmt.Errorf("s3blob: encode signal %s: %w", sig.ID, err)
		}
	}

	key := fmt.Sprintf("%s/%s/%s.jsonl",
		a.prefix,
		cycleAt.UTC().Format("2006/01/02"),
		cycleAt.UTC().Format("150405.000"),
	)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put %s: %w", key, err)
	}
	return nil
}
