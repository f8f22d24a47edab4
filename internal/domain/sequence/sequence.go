// Package sequence holds the pure numbering rules shared by seller numbers
// and article label numbers. Nothing here touches storage or locks.
package sequence

import "github.com/google/uuid"

// Entry is a record currently holding a number inside one scope.
type Entry struct {
	ID     uuid.UUID
	Number int
}

// Assignment is a number write to apply to the record with ID.
type Assignment struct {
	ID     uuid.UUID
	Number int
}

// Max returns the largest number among entries, 0 for an empty scope.
func Max(entries []Entry) int {
	max := 0
	for _, e := range entries {
		if e.Number > max {
			max = e.Number
		}
	}
	return max
}

// Next returns the number following current.
func Next(current int) int {
	return current + 1
}

// Run returns n contiguous numbers following current.
func Run(current, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = current + 1 + i
	}
	return out
}

// Plan computes the writes that free desired for the record exclude.
//
// Every other entry holding desired moves to a fresh number above the
// scope's current maximum, in input order. Entries not holding desired are
// left alone. The result is empty when desired is already free.
func Plan(existing []Entry, desired int, exclude uuid.UUID) []Assignment {
	max := Max(existing)
	if desired > max {
		max = desired
	}
	var out []Assignment
	for _, e := range existing {
		if e.ID == exclude || e.Number != desired {
			continue
		}
		max++
		out = append(out, Assignment{ID: e.ID, Number: max})
	}
	return out
}
