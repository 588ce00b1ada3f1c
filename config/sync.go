package config

// Tuning knobs for the sync pipeline. The batch size bounds how many
// reference-service lookups are in flight per wave; the chunk size bounds
// how many rows go into one batched insert.

const (
	defaultLookupBatchSize = 10
	defaultChunkSize       = 100
)

type SyncTuning struct {
	LookupBatchSize int
	ChunkSize       int
}

func GetSyncTuning() SyncTuning {
	batch := intFromEnv("SYNC_LOOKUP_BATCH_SIZE", defaultLookupBatchSize)
	if batch <= 0 {
		batch = defaultLookupBatchSize
	}
	chunk := intFromEnv("SYNC_CHUNK_SIZE", defaultChunkSize)
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	return SyncTuning{
		LookupBatchSize: batch,
		ChunkSize:       chunk,
	}
}
