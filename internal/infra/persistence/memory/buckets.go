package memory

import (
	"encoding/json"
	"fmt"
)

// Bucket names used by the snapshotting backends. Each bucket holds one JSON
// document so a backend commit rewrites at most len(Buckets) rows.
var Buckets = []string{"combinations", "orders", "sheets", "fields", "results", "counters"}

// EncodeBuckets marshals a snapshot into one JSON payload per bucket.
func EncodeBuckets(snapshot Snapshot) (map[string][]byte, error) {
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		target, _ := bucketTarget(&snapshot, bucket)
		data, err := json.Marshal(target)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBuckets rebuilds a snapshot from bucket payloads. Unknown buckets
// and empty payloads are skipped.
func DecodeBuckets(payloads map[string][]byte) (Snapshot, error) {
	var snapshot Snapshot
	for bucket, payload := range payloads {
		if len(payload) == 0 {
			continue
		}
		target, ok := bucketTarget(&snapshot, bucket)
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	return snapshot, nil
}

func bucketTarget(s *Snapshot, bucket string) (any, bool) {
	switch bucket {
	case "combinations":
		return &s.Combinations, true
	case "orders":
		return &s.Orders, true
	case "sheets":
		return &s.Sheets, true
	case "fields":
		return &s.Fields, true
	case "results":
		return &s.Results, true
	case "counters":
		return &s.Counters, true
	default:
		return nil, false
	}
}
