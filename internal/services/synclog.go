package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/certia/certia-core/internal/repository"
)

// Collection names as they appear in sync queue items and remote pushes
const (
	TableCompanies      = "companies"
	TableContracts      = "contracts"
	TableCertifications = "certifications"
	TablePayments       = "payments"
	TableDistributions  = "distributions"
)

// enqueueSync snapshots a record as JSON and appends it to the sync queue.
// The snapshot is taken now; later mutations of the same record enqueue new
// items rather than editing this one.
func enqueueSync(ctx context.Context, queue repository.SyncQueueRepository, action, table, recordID string, record any) error {
	payload := ""
	if record != nil {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to snapshot %s/%s for sync: %w", table, recordID, err)
		}
		payload = string(data)
	}

	if _, err := queue.Enqueue(ctx, action, table, recordID, payload); err != nil {
		return fmt.Errorf("failed to enqueue sync item for %s/%s: %w", table, recordID, err)
	}
	return nil
}
