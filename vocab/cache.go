package vocab

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"

	"github.com/tsawler/go-sentiment/internal/wire"
	"github.com/tsawler/go-sentiment/tensor"
)

// Cache wire schema:
//
//	message Vocab {
//	  repeated string words = 1;
//	  int64 dim = 2;
//	  repeated float table = 3 [packed = true];
//	}
const (
	fieldWords = 1
	fieldDim   = 2
	fieldTable = 3
)

// Marshal encodes the vocabulary and its table.
func (v *Vocab) Marshal() []byte {
	var b []byte
	b = wire.AppendRepeatedString(b, fieldWords, v.words)
	b = wire.AppendInt(b, fieldDim, v.Dim())
	return wire.AppendPackedFloat32s(b, fieldTable, v.Table.Data)
}

// Unmarshal decodes a vocabulary written by Marshal.
func Unmarshal(data []byte) (*Vocab, error) {
	var words []string
	var dim int
	var values []float32
	err := wire.Parse(data, func(f wire.Field) error {
		var err error
		switch f.Num {
		case fieldWords:
			words = append(words, f.String())
		case fieldDim:
			dim = f.Int()
		case fieldTable:
			values, err = wire.ParsePackedFloat32s(f.Bytes)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid embedding width %d", dim)
	}
	table, err := tensor.New([]int{len(words), dim}, values)
	if err != nil {
		return nil, fmt.Errorf("invalid embedding table: %w", err)
	}
	return newVocab(words, table)
}

// Save writes the cache file.
func (v *Vocab) Save(path string) error {
	if err := os.WriteFile(path, v.Marshal(), 0644); err != nil {
		return fmt.Errorf("failed to write vocabulary cache: %w", err)
	}
	return nil
}

// Load reads a cache file written by Save.
func Load(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary cache %s: %w", path, err)
	}
	return v, nil
}

// Source describes where a vocabulary comes from when no cache exists yet.
type Source struct {
	DataDir     string // directory of *.txt splits
	VectorsPath string // word2vec binary file
	Seed        uint64 // seed of the random rows
}

// LoadOrBuild returns the cached vocabulary at cachePath. Without a cache it
// builds one from src, saves it and reports built = true.
func LoadOrBuild(cachePath string, src Source) (v *Vocab, built bool, err error) {
	v, err = Load(cachePath)
	if err == nil {
		return v, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	files, err := DatasetFiles(src.DataDir)
	if err != nil {
		return nil, false, err
	}
	words, err := CollectWords(files)
	if err != nil {
		return nil, false, err
	}
	embeds, err := LoadVectors(src.VectorsPath)
	if err != nil {
		return nil, false, err
	}
	v, _, err = Build(words, embeds, rand.NewPCG(src.Seed, src.Seed+1))
	if err != nil {
		return nil, false, err
	}
	if err := v.Save(cachePath); err != nil {
		return nil, false, err
	}
	return v, true, nil
}
