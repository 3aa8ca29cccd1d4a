package pipeline

import "github.com/sheriffdata/gazette-etl/internal/auction"

// FilterDuplicates splits records into those to process and those whose
// natural key is already present in the sink. Records without a key are
// always kept; the sink's upsert is idempotent either way, so suppression
// here is an optimization, not a correctness requirement.
func FilterDuplicates(
	records []auction.RecordBlock,
	existing map[string]struct{},
) (keep []auction.RecordBlock, skipped []auction.RecordBlock) {
	if len(existing) == 0 {
		return records, nil
	}
	keep = make([]auction.RecordBlock, 0, len(records))
	for _, rec := range records {
		if rec.NaturalKey != "" {
			if _, dup := existing[rec.NaturalKey]; dup {
				skipped = append(skipped, rec)
				continue
			}
		}
		keep = append(keep, rec)
	}
	return keep, skipped
}
