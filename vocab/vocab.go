// Package vocab maps dataset words to ids and holds the frozen embedding
// table built from pretrained word2vec vectors.
package vocab

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/danieldk/go2vec"

	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/tensor"
)

// PadWord is the empty word. It always has id 0, the padding id.
const PadWord = ""

// Vocab is an ordered word list with its [V,E] embedding table.
type Vocab struct {
	words []string
	ids   map[string]int32
	Table *tensor.Tensor
}

func newVocab(words []string, table *tensor.Tensor) (*Vocab, error) {
	if len(words) == 0 || words[0] != PadWord {
		return nil, fmt.Errorf("vocabulary must start with the padding word")
	}
	if table.Dim() != 2 || table.Shape[0] != len(words) {
		return nil, fmt.Errorf("embedding table %v does not match %d words", table.Shape, len(words))
	}
	ids := make(map[string]int32, len(words))
	for i, w := range words {
		if _, dup := ids[w]; dup {
			return nil, fmt.Errorf("duplicate word %q", w)
		}
		ids[w] = int32(i)
	}
	return &Vocab{words: words, ids: ids, Table: table}, nil
}

// Size returns the number of words, the padding word included.
func (v *Vocab) Size() int { return len(v.words) }

// Dim returns the embedding width.
func (v *Vocab) Dim() int { return v.Table.Shape[1] }

func (v *Vocab) ID(word string) (int32, bool) {
	id, ok := v.ids[word]
	return id, ok
}

func (v *Vocab) Word(id int32) string { return v.words[id] }

// Encode splits text on whitespace and maps every known word to its id.
// Unknown words are dropped.
func (v *Vocab) Encode(text string) []int32 {
	fields := strings.Fields(text)
	ids := make([]int32, 0, len(fields))
	for _, w := range fields {
		if id, ok := v.ids[w]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// CollectWords returns the padding word followed by every word of files in
// first-seen order. The first field of each line is a label and is skipped.
func CollectWords(files []string) ([]string, error) {
	words := []string{PadWord}
	seen := map[string]bool{PadWord: true}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			for _, w := range fields[1:] {
				if !seen[w] {
					seen[w] = true
					words = append(words, w)
				}
			}
		}
	}
	return words, nil
}

// DatasetFiles lists the *.txt files of dir in lexical order.
func DatasetFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no *.txt files in %s", dir)
	}
	return files, nil
}

// LoadVectors reads a word2vec binary file.
func LoadVectors(path string) (*go2vec.Embeddings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word vectors: %w", err)
	}
	defer f.Close()

	embeds, err := go2vec.ReadWord2VecBinary(bufio.NewReader(f), false)
	if err != nil {
		return nil, fmt.Errorf("failed to read word vectors %s: %w", path, err)
	}
	return embeds, nil
}

// Build creates the embedding table for words. Every row starts as a
// standard normal draw; rows of words that have a pretrained vector are then
// overwritten with it. The padding row keeps its random values.
func Build(words []string, embeds *go2vec.Embeddings, src rand.Source) (*Vocab, int, error) {
	dim := embeds.EmbeddingSize()
	table, err := tensor.Zeros([]int{len(words), dim})
	if err != nil {
		return nil, 0, err
	}
	layers.FillNormal(table, 0, 1, src)

	found := 0
	for i, w := range words {
		if w == PadWord {
			continue
		}
		vec, ok := embeds.Embedding(w)
		if !ok {
			continue
		}
		copy(table.Data[i*dim:(i+1)*dim], vec)
		found++
	}

	v, err := newVocab(words, table)
	if err != nil {
		return nil, 0, err
	}
	return v, found, nil
}
