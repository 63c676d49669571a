// Package dataset reads sentiment splits: one example per line, an integer
// label, a tab, then whitespace-separated words.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsawler/go-sentiment/training"
)

// Split file names inside the data directory.
const (
	TrainFile      = "train.txt"
	ValidationFile = "validation.txt"
	TestFile       = "test.txt"
)

// Encoder maps text to token ids.
type Encoder interface {
	Encode(text string) []int32
}

// TextDataset holds one encoded split in file order.
type TextDataset struct {
	Path   string
	tokens [][]int32
	labels []int
}

var _ training.Dataset = (*TextDataset)(nil)

// Load reads and encodes the split at path. Blank lines are skipped; any
// other malformed line is an error naming the file and line.
func Load(path string, enc Encoder) (*TextDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open split: %w", err)
	}
	defer f.Close()

	ds := &TextDataset{Path: path}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		label, text, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		ds.tokens = append(ds.tokens, enc.Encode(text))
		ds.labels = append(ds.labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ds, nil
}

func parseLine(line string) (int, string, error) {
	labelText, text, ok := strings.Cut(line, "\t")
	if !ok {
		return 0, "", fmt.Errorf("missing tab between label and text")
	}
	label, err := strconv.Atoi(strings.TrimSpace(labelText))
	if err != nil {
		return 0, "", fmt.Errorf("invalid label %q", labelText)
	}
	if label < 0 {
		return 0, "", fmt.Errorf("negative label %d", label)
	}
	return label, text, nil
}

// LoadSplit reads the named split file of dataDir.
func LoadSplit(dataDir, name string, enc Encoder) (*TextDataset, error) {
	return Load(filepath.Join(dataDir, name), enc)
}

func (ds *TextDataset) Len() int { return len(ds.labels) }

func (ds *TextDataset) Get(idx int) ([]int32, int, error) {
	if idx < 0 || idx >= len(ds.labels) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", idx, len(ds.labels))
	}
	return ds.tokens[idx], ds.labels[idx], nil
}

// NumClasses returns one more than the largest label, 0 when empty.
func (ds *TextDataset) NumClasses() int {
	n := 0
	for _, l := range ds.labels {
		n = max(n, l+1)
	}
	return n
}
