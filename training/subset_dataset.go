package training

import "fmt"

// SubsetDataset exposes only the first limit examples of another dataset.
type SubsetDataset struct {
	originalDataset Dataset
	limit           int
}

// NewSubsetDataset wraps original. A limit beyond its length is clamped.
func NewSubsetDataset(original Dataset, limit int) (*SubsetDataset, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative")
	}
	return &SubsetDataset{
		originalDataset: original,
		limit:           min(limit, original.Len()),
	}, nil
}

func (sd *SubsetDataset) Len() int {
	return sd.limit
}

// Get returns an example from the original dataset.
func (sd *SubsetDataset) Get(idx int) ([]int32, int, error) {
	if idx < 0 || idx >= sd.limit {
		return nil, 0, fmt.Errorf("index out of bounds for subset: %d (limit: %d)", idx, sd.limit)
	}
	return sd.originalDataset.Get(idx)
}
