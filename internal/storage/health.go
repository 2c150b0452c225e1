package storage

import (
	"encoding/json"
	"fmt"
)

// HealthReport summarizes the store's condition for a UI layer that wants
// to warn the user before storage pressure becomes data loss.
type HealthReport struct {
	Available       bool     `json:"available"`
	UsedBytes       int64    `json:"used_bytes"`
	CapacityBytes   int64    `json:"capacity_bytes"`
	UsagePercent    float64  `json:"usage_percent"`
	CorruptKeys     []string `json:"corrupt_keys,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// HealthCheck reports availability, estimated usage against the assumed
// capacity, and which of the given keys fail to decode.
func (s *Store) HealthCheck(keys []string) HealthReport {
	report := HealthReport{
		Available:     s.Available(),
		CapacityBytes: s.opts.AssumedCapacityBytes,
	}

	if !report.Available {
		report.Recommendations = append(report.Recommendations,
			"Persistent storage is unavailable; progress is kept in memory only and will be lost on restart.")
		return report
	}

	if sizer, ok := s.substrate.(Sizer); ok {
		if used, err := sizer.UsedBytes(); err == nil {
			report.UsedBytes = used
			report.UsagePercent = float64(used) / float64(report.CapacityBytes) * 100
		}
	}

	for _, key := range keys {
		raw, found, serr := s.getRaw(key)
		if serr != nil || !found {
			continue
		}
		if !json.Valid(raw) {
			report.CorruptKeys = append(report.CorruptKeys, key)
		}
	}

	if report.UsagePercent > 80 {
		report.Recommendations = append(report.Recommendations,
			"Storage is over 80% full; export a backup and prune old review history.")
	}
	for _, key := range report.CorruptKeys {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Data at %q is unreadable; run recovery to salvage what remains.", key))
	}
	return report
}
