package training

import (
	"fmt"
	"math/rand/v2"
)

// PadID is the token id used to right-pad sequences inside a batch.
const PadID int32 = 0

// Dataset interface defines methods that all datasets must implement
type Dataset interface {
	Len() int                                           // Total number of examples
	Get(idx int) (tokens []int32, label int, err error) // Returns a single example
}

// Batch is a padded [B,T] block of token ids with one label per row.
type Batch struct {
	Tokens [][]int32
	Labels []int
}

// Size returns the number of examples in the batch.
func (b *Batch) Size() int { return len(b.Labels) }

// DataLoader provides batching, per-epoch shuffling and padding.
type DataLoader struct {
	dataset   Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	indices   []int
	position  int
}

// NewDataLoader creates a new DataLoader. With shuffle set, every Reset
// permutes the examples using a generator seeded with seed.
func NewDataLoader(dataset Dataset, batchSize int, shuffle bool, seed uint64) (*DataLoader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	indices := make([]int, dataset.Len())
	for i := range indices {
		indices[i] = i
	}

	return &DataLoader{
		dataset:   dataset,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		indices:   indices,
	}, nil
}

// Len returns the number of batches in an epoch
func (dl *DataLoader) Len() int {
	return (len(dl.indices) + dl.batchSize - 1) / dl.batchSize
}

// NumSamples returns the number of examples in an epoch.
func (dl *DataLoader) NumSamples() int {
	return len(dl.indices)
}

// Reset resets the data loader for a new epoch
func (dl *DataLoader) Reset() {
	dl.position = 0
	if dl.shuffle {
		dl.rng.Shuffle(len(dl.indices), func(i, j int) {
			dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i]
		})
	}
}

// HasNext returns true if there are more batches in the current epoch
func (dl *DataLoader) HasNext() bool {
	return dl.position < len(dl.indices)
}

// Next returns the next batch or nil if epoch is complete
func (dl *DataLoader) Next() (*Batch, error) {
	if dl.position >= len(dl.indices) {
		return nil, nil // End of epoch
	}

	batchEnd := min(dl.position+dl.batchSize, len(dl.indices))
	batchIndices := dl.indices[dl.position:batchEnd]
	dl.position = batchEnd

	batch, err := dl.loadBatch(batchIndices)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	return batch, nil
}

// loadBatch pads every example to the longest one in the batch. An empty
// example still occupies one padding position.
func (dl *DataLoader) loadBatch(indices []int) (*Batch, error) {
	seqs := make([][]int32, len(indices))
	labels := make([]int, len(indices))
	width := 1
	for i, idx := range indices {
		tokens, label, err := dl.dataset.Get(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to load example %d: %w", idx, err)
		}
		seqs[i] = tokens
		labels[i] = label
		width = max(width, len(tokens))
	}

	padded := make([][]int32, len(seqs))
	for i, seq := range seqs {
		row := make([]int32, width) // zero is PadID
		copy(row, seq)
		padded[i] = row
	}

	return &Batch{Tokens: padded, Labels: labels}, nil
}

// SimpleDataset keeps examples in memory.
type SimpleDataset struct {
	tokens [][]int32
	labels []int
}

// NewSimpleDataset creates a new SimpleDataset
func NewSimpleDataset(tokens [][]int32, labels []int) (*SimpleDataset, error) {
	if len(tokens) != len(labels) {
		return nil, fmt.Errorf("tokens and labels must have the same length: got %d and %d", len(tokens), len(labels))
	}
	return &SimpleDataset{tokens: tokens, labels: labels}, nil
}

func (ds *SimpleDataset) Len() int {
	return len(ds.tokens)
}

func (ds *SimpleDataset) Get(idx int) ([]int32, int, error) {
	if idx < 0 || idx >= len(ds.tokens) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", idx, len(ds.tokens))
	}
	return ds.tokens[idx], ds.labels[idx], nil
}
