package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ologbonowiwi/sparsedex/internal/collab"
	"github.com/ologbonowiwi/sparsedex/pkg/sparse"
	"github.com/ologbonowiwi/sparsedex/pkg/sparsedex"
)

// vectorRecord is one line of a source vectors.jsonl file: the raw
// input BuildIndex reads from, analogous to a directory of files a
// real deployment would index from disk.
type vectorRecord struct {
	ID      uint32            `json:"id"`
	Indices []uint32          `json:"indices"`
	Weights []float32         `json:"weights"`
	Payload map[string]string `json:"payload,omitempty"`
}

// sourceFileName is the plain-text corpus the CLI indexes from,
// analogous to "a directory of files" in a real deployment.
const sourceFileName = "vectors.jsonl"

// loadCollaborators reads dir/vectors.jsonl and populates in-memory
// collaborators from it. Returns an error naming the source file when
// it is missing, since `sparsedex build` requires source data.
func loadCollaborators(dir string) (sparsedex.Collaborators, error) {
	path := filepath.Join(dir, sourceFileName)
	f, err := os.Open(path)
	if err != nil {
		return sparsedex.Collaborators{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	tr := collab.NewMemoryIdentifierTracker()
	store := collab.NewMemoryVectorStorage()
	payload := collab.NewMemoryPayloadIndex()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec vectorRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return sparsedex.Collaborators{}, fmt.Errorf("parse %s: %w", path, err)
		}
		v, err := sparse.New(rec.Indices, rec.Weights)
		if err != nil {
			return sparsedex.Collaborators{}, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		tr.Track(rec.ID)
		store.Put(rec.ID, v)
		for field, value := range rec.Payload {
			payload.Set(rec.ID, field, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return sparsedex.Collaborators{}, fmt.Errorf("read %s: %w", path, err)
	}

	return sparsedex.Collaborators{Identifiers: tr, Vectors: store, Payload: payload}, nil
}

// parseInlineVector parses a "dim:weight,dim:weight" query string into
// a sparse.Vector, as produced by `sparsedex search --query`.
func parseInlineVector(s string) (sparse.Vector, error) {
	var indices []uint32
	var weights []float32

	pairs, err := splitPairs(s)
	if err != nil {
		return sparse.Vector{}, err
	}
	for _, p := range pairs {
		indices = append(indices, p.index)
		weights = append(weights, p.weight)
	}
	return sparse.New(indices, weights)
}

type inlinePair struct {
	index  uint32
	weight float32
}

func splitPairs(s string) ([]inlinePair, error) {
	var out []inlinePair
	var cur []byte
	flush := func() error {
		if len(cur) == 0 {
			return nil
		}
		var idx uint32
		var w float32
		if _, err := fmt.Sscanf(string(cur), "%d:%f", &idx, &w); err != nil {
			return fmt.Errorf("invalid query term %q: %w", string(cur), err)
		}
		out = append(out, inlinePair{index: idx, weight: w})
		cur = nil
		return nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		cur = append(cur, s[i])
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}
