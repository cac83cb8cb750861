// Package blob is the only entry point to the result archive backends. Other
// packages depend on blob.Store and never import internal/infra/blob directly.
package blob

import (
	"tirecore/internal/blob/core"
	"tirecore/pkg/domain"
)

// Aliases over the backend-neutral archive contract.
type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
)

// Archive drivers accepted by Open.
const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// Sentinel errors shared by every driver.
var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// Metadata keys attached to archived result files.
const (
	MetaOrder  = "order"
	MetaBatch  = "batch"
	MetaStatus = "status"
)

// ResultPutOptions describes an archived result file so its ledger mapping
// can be recovered from the object alone.
func ResultPutOptions(record domain.ResultRecord, contentType string) PutOptions {
	return PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			MetaOrder:  record.TestOrderID,
			MetaBatch:  record.Batch,
			MetaStatus: string(record.Status),
		},
	}
}
