// Package pipeline runs segmented records through extraction and
// persistence: partitioning, duplicate filtering, bounded-concurrency
// batch dispatch, and run coordination.
package pipeline

import "github.com/sheriffdata/gazette-etl/internal/auction"

// Partition divides records into ceil(len/batchSize) contiguous batches.
// The union of all batches equals the input sequence exactly once each, in
// ordinal order. batchSize must be positive; Partition panics otherwise
// because the value is validated at config load.
func Partition(records []auction.RecordBlock, batchSize int, documentKey string) []auction.Batch {
	if batchSize <= 0 {
		panic("pipeline: batchSize must be positive")
	}
	if len(records) == 0 {
		return nil
	}
	count := (len(records) + batchSize - 1) / batchSize
	batches := make([]auction.Batch, 0, count)
	for k := 1; k <= count; k++ {
		lo := (k - 1) * batchSize
		hi := k * batchSize
		if hi > len(records) {
			hi = len(records)
		}
		part := records[lo:hi]
		batches = append(batches, auction.Batch{
			Number:       k,
			StartOrdinal: part[0].Ordinal,
			EndOrdinal:   part[len(part)-1].Ordinal,
			Records:      part,
			DocumentKey:  documentKey,
		})
	}
	return batches
}
