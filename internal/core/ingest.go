package core

import (
	"fmt"
	"path"
	"time"

	"golang.org/x/text/unicode/norm"

	"tirecore/pkg/domain"
)

// ActiveOrders returns the non-cancelled orders in sequence order.
func ActiveOrders(orders []domain.TestOrder) []domain.TestOrder {
	active := make([]domain.TestOrder, 0, len(orders))
	for _, o := range orders {
		if o.Active() {
			active = append(active, o)
		}
	}
	return active
}

// NormalizeFileName returns the NFC form of an uploaded file name.
func NormalizeFileName(name string) string {
	return norm.NFC.String(name)
}

// AssignRoundRobin maps file i onto pool[i mod len(pool)]. The pool is fixed
// for the whole batch; an empty pool rejects the batch with ErrNoEligibleOrder.
// Records are returned in batch order without ids.
func AssignRoundRobin(files []domain.FileDescriptor, pool []domain.TestOrder, batch string, at time.Time) ([]domain.ResultRecord, error) {
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %d file(s) have no active order", domain.ErrNoEligibleOrder, len(files))
	}
	records := make([]domain.ResultRecord, 0, len(files))
	for i, file := range files {
		target := pool[i%len(pool)]
		status := domain.ResultStatusPending
		if target.Status == domain.OrderStatusCompleted {
			status = domain.ResultStatusMatched
		}
		records = append(records, domain.ResultRecord{
			TestOrderID: target.ID,
			FileName:    NormalizeFileName(file.Name),
			UploadedAt:  at,
			Status:      status,
			Batch:       batch,
		})
	}
	return records, nil
}

// ResultArchiveKey is the blob key holding the uploaded bytes of record.
func ResultArchiveKey(record domain.ResultRecord) string {
	return path.Join("results", record.ID, path.Base(record.FileName))
}
