// Package allocator decides how much of a multi-unit job fits in the
// remaining daily quota.
package allocator

// Allocate splits a job of totalUnits into units processed now and units
// skipped. Processing order is the job's natural order (page order), so a
// partial allocation always covers a prefix. It is a pre-check only: each
// processed unit still goes through its own reservation, which re-validates
// against quota consumed between allocation and processing.
func Allocate(remaining, totalUnits int) (unitsToProcess, unitsSkipped int) {
	if remaining < 0 {
		remaining = 0
	}
	if totalUnits < 0 {
		totalUnits = 0
	}
	unitsToProcess = totalUnits
	if remaining < totalUnits {
		unitsToProcess = remaining
	}
	return unitsToProcess, totalUnits - unitsToProcess
}
