package client

// Backend responses mix snake_case and camelCase field names depending on
// version. Normalization happens here, once, with dual-name lookup and
// zero-value defaults, so nothing downstream branches on missing fields.

// pickNumber returns the first present numeric field among names, else 0.
func pickNumber(doc map[string]any, names ...string) float64 {
	for _, n := range names {
		switch v := doc[n].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	return 0
}

// pickString returns the first present string field among names, else "".
func pickString(doc map[string]any, names ...string) string {
	for _, n := range names {
		if v, ok := doc[n].(string); ok {
			return v
		}
	}
	return ""
}

// pickMap returns the first present object field among names, else nil.
func pickMap(doc map[string]any, names ...string) map[string]any {
	for _, n := range names {
		if v, ok := doc[n].(map[string]any); ok {
			return v
		}
	}
	return nil
}

// HealthStatus is the normalized health document.
type HealthStatus struct {
	Status        string
	Version       string
	UptimeSeconds float64
	RequestID     string
}

func normalizeHealth(doc map[string]any, requestID string) *HealthStatus {
	return &HealthStatus{
		Status:        pickString(doc, "status"),
		Version:       pickString(doc, "version"),
		UptimeSeconds: pickNumber(doc, "uptime", "uptime_seconds", "uptimeSeconds"),
		RequestID:     requestID,
	}
}

// StreamStat is per-stream backend statistics.
type StreamStat struct {
	Records     int64
	StorageSize int64
}

// BackendStats is the normalized statistics document.
type BackendStats struct {
	TotalRecords  int64
	StorageSize   int64
	IngestionRate float64
	StreamStats   map[string]StreamStat
	RequestID     string
}

func normalizeStats(doc map[string]any, requestID string) *BackendStats {
	out := &BackendStats{
		TotalRecords:  int64(pickNumber(doc, "total_records", "totalRecords")),
		StorageSize:   int64(pickNumber(doc, "storage_size", "storageSize")),
		IngestionRate: pickNumber(doc, "ingestion_rate", "ingestionRate"),
		StreamStats:   map[string]StreamStat{},
		RequestID:     requestID,
	}
	for name, raw := range pickMap(doc, "stream_stats", "streamStats") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out.StreamStats[name] = StreamStat{
			Records:     int64(pickNumber(entry, "record_count", "recordCount", "records")),
			StorageSize: int64(pickNumber(entry, "storage_size", "storageSize")),
		}
	}
	return out
}

// CleanupResult is the normalized retention-cleanup response.
type CleanupResult struct {
	DeletedRecords int64
	RequestID      string
}

func normalizeCleanup(doc map[string]any, requestID string) *CleanupResult {
	return &CleanupResult{
		DeletedRecords: int64(pickNumber(doc, "deleted_records", "deletedRecords", "deleted")),
		RequestID:      requestID,
	}
}
