// Package reconciler keeps the local cache consistent with chain state: a
// live log subscription for latency, plus a periodic catch-up scan that is
// the actual correctness guarantee.
package reconciler

// BlockRange is an inclusive block span
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange cuts an inclusive block span into chunks of at most chunkSize
// blocks, in ascending order. RPC providers cap getLogs spans, so every scan
// walks the backlog in bounded pieces.
func SplitRange(from, to, chunkSize uint64) []BlockRange {
	if to < from {
		return nil
	}
	if chunkSize == 0 {
		chunkSize = 1
	}

	var chunks []BlockRange
	for start := from; start <= to; start += chunkSize {
		end := start + chunkSize - 1
		if end > to {
			end = to
		}
		chunks = append(chunks, BlockRange{From: start, To: end})
	}
	return chunks
}
