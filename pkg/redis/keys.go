package redis

import "fmt"

// Key construction helpers for the crowdvisual Redis schema

// IngestMetaKey returns the key for per-building ingest metadata (hash)
// Pattern: ingest:meta:{building}
func IngestMetaKey(building string) string {
	return fmt.Sprintf("ingest:meta:%s", building)
}

// IngestCountKey returns the key for per-building daily ingest counters (hash)
// Pattern: ingest:count:{date_key}
func IngestCountKey(dateKey string) string {
	return fmt.Sprintf("ingest:count:%s", dateKey)
}

// OccupancyCacheKey returns the key for cached occupancy responses (string)
// Pattern: cache:occupancy:{scope}:{date_key}:{minute}
func OccupancyCacheKey(scope, dateKey string, minute int) string {
	return fmt.Sprintf("cache:occupancy:%s:%s:%d", scope, dateKey, minute)
}
