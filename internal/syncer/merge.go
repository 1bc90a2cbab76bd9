package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/repository"
	"github.com/certia/certia-core/internal/services"
	"gorm.io/gorm"
)

// Tables pulled from the backend, parents before children so upserts never
// reference a record that has not landed yet.
var pullTables = []string{
	services.TableCompanies,
	services.TableContracts,
	services.TableCertifications,
	services.TablePayments,
	services.TableDistributions,
}

// storeMerger applies pulled remote records to the local store, one typed
// collection at a time.
type storeMerger struct {
	repos *repository.Repositories
}

func newStoreMerger(repos *repository.Repositories) *storeMerger {
	return &storeMerger{repos: repos}
}

// localVersion returns the local record's updated_at and its JSON snapshot.
// found is false when the record does not exist locally.
func (m *storeMerger) localVersion(ctx context.Context, table, id string) (updatedAt time.Time, snapshot string, found bool, err error) {
	var record any

	switch table {
	case services.TableCompanies:
		var v *models.Company
		if v, err = m.repos.Company.FindByID(ctx, id); err == nil {
			updatedAt, record = v.UpdatedAt, v
		}
	case services.TableContracts:
		var v *models.Contract
		if v, err = m.repos.Contract.FindByID(ctx, id); err == nil {
			updatedAt, record = v.UpdatedAt, v
		}
	case services.TableCertifications:
		var v *models.Certification
		if v, err = m.repos.Certification.FindByID(ctx, id); err == nil {
			updatedAt, record = v.UpdatedAt, v
		}
	case services.TablePayments:
		var v *models.Payment
		if v, err = m.repos.Payment.FindByID(ctx, id); err == nil {
			updatedAt, record = v.UpdatedAt, v
		}
	case services.TableDistributions:
		// Distributions are immutable allocation lines; a pulled copy is
		// simply upserted, so there is no local version to compare.
		return time.Time{}, "", false, nil
	default:
		return time.Time{}, "", false, fmt.Errorf("unknown table %q", table)
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, "", false, nil
		}
		return time.Time{}, "", false, err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return time.Time{}, "", false, fmt.Errorf("failed to snapshot local %s/%s: %w", table, id, err)
	}
	return updatedAt, string(data), true, nil
}

// apply upserts a pulled record into its local collection
func (m *storeMerger) apply(ctx context.Context, table string, rec RemoteRecord) error {
	switch table {
	case services.TableCompanies:
		var v models.Company
		if err := json.Unmarshal(rec.Payload, &v); err != nil {
			return fmt.Errorf("failed to decode remote company %s: %w", rec.ID, err)
		}
		return m.repos.Company.Upsert(ctx, &v)
	case services.TableContracts:
		var v models.Contract
		if err := json.Unmarshal(rec.Payload, &v); err != nil {
			return fmt.Errorf("failed to decode remote contract %s: %w", rec.ID, err)
		}
		return m.repos.Contract.Upsert(ctx, &v)
	case services.TableCertifications:
		var v models.Certification
		if err := json.Unmarshal(rec.Payload, &v); err != nil {
			return fmt.Errorf("failed to decode remote certification %s: %w", rec.ID, err)
		}
		return m.repos.Certification.Upsert(ctx, &v)
	case services.TablePayments:
		var v models.Payment
		if err := json.Unmarshal(rec.Payload, &v); err != nil {
			return fmt.Errorf("failed to decode remote payment %s: %w", rec.ID, err)
		}
		v.Distributions = nil
		return m.repos.Payment.Upsert(ctx, &v)
	case services.TableDistributions:
		var v models.Distribution
		if err := json.Unmarshal(rec.Payload, &v); err != nil {
			return fmt.Errorf("failed to decode remote distribution %s: %w", rec.ID, err)
		}
		return m.repos.Distribution.Upsert(ctx, &v)
	default:
		return fmt.Errorf("unknown table %q", table)
	}
}
