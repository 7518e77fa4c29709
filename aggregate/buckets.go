// Package aggregate turns per-question Likert scores and path lengths into
// per-category and global benchmark figures.
package aggregate

import "github.com/datar-psa/goeqa/heuristic"

// Entry is one scored question.
type Entry struct {
	QuestionID string
	// Normalized is the Likert score mapped to [0, 100]
	Normalized float64
	// SPL is the path efficiency coefficient in (0, 1]; 1 when SPL is not computed
	SPL float64
}

// Composite returns the SPL-weighted normalized score.
func (e Entry) Composite() float64 {
	return heuristic.Composite(e.Normalized, e.SPL)
}

// Buckets groups entries by category, keeping categories in the order they
// were first seen.
type Buckets struct {
	order   []string
	entries map[string][]Entry
}

// NewBuckets returns empty Buckets.
func NewBuckets() *Buckets {
	return &Buckets{entries: make(map[string][]Entry)}
}

// Add appends e to the bucket of category.
func (b *Buckets) Add(category string, e Entry) {
	if _, ok := b.entries[category]; !ok {
		b.order = append(b.order, category)
	}
	b.entries[category] = append(b.entries[category], e)
}

// Len returns the number of entries across all categories.
func (b *Buckets) Len() int {
	n := 0
	for _, es := range b.entries {
		n += len(es)
	}
	return n
}

// CategorySummary holds the figures of one category.
type CategorySummary struct {
	Category string
	Count    int
	Mean     float64
	SPLMean  float64
}

// Skip records a question left out of the aggregation.
type Skip struct {
	QuestionID string
	Reason     string
}

// Summary is the result of an aggregation pass.
type Summary struct {
	Categories []CategorySummary
	// Count is the number of aggregated questions
	Count int
	// Total is the mean normalized score over every question, not the mean of
	// the category means.
	Total float64
	// TotalSPL is the mean composite score over every question.
	TotalSPL float64
	// HasSPL is false when path lengths were not supplied.
	HasSPL  bool
	Skipped []Skip
}

// Summarize computes category means and the flat global means.
func (b *Buckets) Summarize(withSPL bool) Summary {
	s := Summary{HasSPL: withSPL}
	var sum, splSum float64
	for _, category := range b.order {
		entries := b.entries[category]
		var catSum, catSPL float64
		for _, e := range entries {
			catSum += e.Normalized
			catSPL += e.Composite()
		}
		n := float64(len(entries))
		s.Categories = append(s.Categories, CategorySummary{
			Category: category,
			Count:    len(entries),
			Mean:     catSum / n,
			SPLMean:  catSPL / n,
		})
		sum += catSum
		splSum += catSPL
		s.Count += len(entries)
	}
	if s.Count > 0 {
		s.Total = sum / float64(s.Count)
		s.TotalSPL = splSum / float64(s.Count)
	}
	return s
}
