package domain

// Batch is an aggregate of records submitted together in one network call.
// Acceptance is batch-atomic: the endpoint either takes the whole batch or
// rejects it.
type Batch struct {
	// Records contains the records in submission order.
	Records []Record

	// TotalBytes is the sum of the records' payload sizes.
	TotalBytes int64
}

// NewBatch creates an empty batch with room for n records.
func NewBatch(n int) *Batch {
	return &Batch{Records: make([]Record, 0, n)}
}

// Add appends a record to the batch.
func (b *Batch) Add(rec Record) {
	b.Records = append(b.Records, rec)
	b.TotalBytes += rec.SizeBytes
}

// Size returns the number of records in the batch.
func (b *Batch) Size() int {
	return len(b.Records)
}

// Empty returns true if the batch has no records.
func (b *Batch) Empty() bool {
	return len(b.Records) == 0
}

// IDs returns the store identifiers of the batched records.
func (b *Batch) IDs() []int64 {
	ids := make([]int64, len(b.Records))
	for i, r := range b.Records {
		ids[i] = r.ID
	}
	return ids
}

// MaxRetryCount returns the highest retry count among the batched records.
// The delivery backoff is derived from it.
func (b *Batch) MaxRetryCount() int {
	max := 0
	for _, r := range b.Records {
		if r.RetryCount > max {
			max = r.RetryCount
		}
	}
	return max
}

// Reset clears the batch for reuse.
func (b *Batch) Reset() {
	b.Records = b.Records[:0]
	b.TotalBytes = 0
}
