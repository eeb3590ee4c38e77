// Package http implements the outbound adapters: the batch sender that
// submits record batches to the ingestion endpoint, and the lightweight
// connectivity probe.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/domain"
	"github.com/HustleDanie/Realtime-Vision-System-sub001/internal/ports"
)

const recordsEndpoint = "/v1/ingest/records"

// BatchSender implements ports.BatchSender over HTTP.
type BatchSender struct {
	client ports.HTTPClient
	logger ports.Logger
}

// NewBatchSender creates a new HTTP batch sender.
func NewBatchSender(client ports.HTTPClient, logger ports.Logger) *BatchSender {
	return &BatchSender{
		client: client,
		logger: logger,
	}
}

// wireRecord is the on-the-wire form of a buffered record.
type wireRecord struct {
	ID             int64  `json:"id"`
	CorrelationKey string `json:"correlation_key"`
	Payload        []byte `json:"payload"`
	OriginTS       int64  `json:"origin_ts"`
}

// wireBatch is the request body for a batch submission.
type wireBatch struct {
	BatchID  string       `json:"batch_id"`
	DeviceID string       `json:"device_id"`
	Records  []wireRecord `json:"records"`
}

// Send submits the batch as one POST. The response status is interpreted as:
// 2xx whole batch accepted, 4xx permanent rejection, anything else transient.
func (s *BatchSender) Send(ctx context.Context, batch *domain.Batch, metadata ports.SendMetadata) error {
	if batch.Empty() {
		return nil
	}

	wb := wireBatch{
		BatchID:  uuid.NewString(),
		DeviceID: metadata.DeviceID,
		Records:  make([]wireRecord, len(batch.Records)),
	}
	for i, rec := range batch.Records {
		wb.Records[i] = wireRecord{
			ID:             rec.ID,
			CorrelationKey: rec.CorrelationKey,
			Payload:        rec.Payload,
			OriginTS:       rec.OriginTimestamp.UnixNano(),
		}
	}

	body, err := json.Marshal(wb)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	url := metadata.ServiceURL + recordsEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+metadata.AuthKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-Hostname", metadata.Hostname)
	req.Header.Set("X-Edge-Device-Id", metadata.DeviceID)
	req.Header.Set("X-Batch-Id", wb.BatchID)

	resp, err := s.client.Do(req)
	if err != nil {
		// Timeout, connection refused, DNS failure: all retryable.
		return &domain.TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
		return nil
	case resp.StatusCode/100 == 4:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &domain.PermanentRejectionError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &domain.TransientError{
			Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody)),
		}
	}
}
