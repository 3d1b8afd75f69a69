package invertedindex

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	sdxerrors "github.com/ologbonowiwi/sparsedex/internal/errors"
	"github.com/ologbonowiwi/sparsedex/internal/postings"
)

// magic identifies a sparsedex inverted-index file set.
var magic = [4]byte{'S', 'P', 'D', 'X'}

const formatVersion uint32 = 1

const (
	headerFileName  = "inverted_index.header"
	offsetsFileName = "inverted_index.offsets"
	postingsFileName = "inverted_index.postings"
	buildLockFileName = ".build.lock"
)

// header is the fixed-size file {magic, version, dim_count, total_elements}.
type header struct {
	Version        uint32
	DimCount       uint32
	TotalElements  uint64
}

// offsetEntry is one row of the per-dimension offset table.
type offsetEntry struct {
	DimID     uint32
	Offset    uint64
	Length    uint32
	MaxWeight float32
}

func headerPath(path string) string   { return filepath.Join(path, headerFileName) }
func offsetsPath(path string) string  { return filepath.Join(path, offsetsFileName) }
func postingsPath(path string) string { return filepath.Join(path, postingsFileName) }
func buildLockPath(path string) string { return filepath.Join(path, buildLockFileName) }

// writeIndexFiles serializes dims (in ascending dimension-id order) as a
// header, an offset table, and contiguous postings blocks.
//
// Each file is written to a ".tmp" sibling and only renamed into its
// final path once every file has been written successfully, mirroring
// the write-then-rename save pattern used elsewhere in this tree. The
// header — whose presence is what Open uses to decide a directory
// holds a built Mmap index — is renamed last, so a crash or
// interruption partway through never leaves a header on disk pointing
// at missing or stale offsets/postings; Open falls back to treating
// the directory as not-yet-built instead of opening inconsistent
// state.
func writeIndexFiles(path string, dims []uint32, lists map[uint32]*postings.List) (err error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return sdxerrors.IndexIOError("create index directory", err)
	}

	var total uint64
	entries := make([]offsetEntry, 0, len(dims))
	var offset uint64
	for _, d := range dims {
		l := lists[d]
		n := uint32(l.Len())
		entries = append(entries, offsetEntry{DimID: d, Offset: offset, Length: n, MaxWeight: l.MaxWeight()})
		offset += uint64(n) * postingElementSize
		total += uint64(n)
	}

	tmpPostings := postingsPath(path) + ".tmp"
	tmpOffsets := offsetsPath(path) + ".tmp"
	tmpHeader := headerPath(path) + ".tmp"
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPostings)
			_ = os.Remove(tmpOffsets)
			_ = os.Remove(tmpHeader)
		}
	}()

	if err = writePostings(tmpPostings, dims, lists); err != nil {
		return err
	}
	if err = writeOffsets(tmpOffsets, entries); err != nil {
		return err
	}
	if err = writeHeader(tmpHeader, header{
		Version:       formatVersion,
		DimCount:      uint32(len(dims)),
		TotalElements: total,
	}); err != nil {
		return err
	}

	if err = os.Rename(tmpPostings, postingsPath(path)); err != nil {
		return sdxerrors.IndexIOError("rename postings file into place", err)
	}
	if err = os.Rename(tmpOffsets, offsetsPath(path)); err != nil {
		return sdxerrors.IndexIOError("rename offsets file into place", err)
	}
	if err = os.Rename(tmpHeader, headerPath(path)); err != nil {
		return sdxerrors.IndexIOError("rename header file into place", err)
	}
	return nil
}

func writeHeader(path string, h header) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return sdxerrors.IndexIOError("create header file", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = sdxerrors.IndexIOError("close header file", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err = w.Write(magic[:]); err != nil {
		return sdxerrors.IndexIOError("write header magic", err)
	}
	for _, v := range []uint32{h.Version, h.DimCount} {
		if err = binary.Write(w, binary.LittleEndian, v); err != nil {
			return sdxerrors.IndexIOError("write header field", err)
		}
	}
	if err = binary.Write(w, binary.LittleEndian, h.TotalElements); err != nil {
		return sdxerrors.IndexIOError("write header field", err)
	}
	if err = w.Flush(); err != nil {
		return sdxerrors.IndexIOError("flush header file", err)
	}
	return nil
}

func readHeader(path string) (header, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return header{}, sdxerrors.IndexIOError("read header file", err)
	}
	if len(b) < 4+4+4+8 {
		return header{}, sdxerrors.IndexCorrupt("truncated_header")
	}
	if [4]byte(b[:4]) != magic {
		return header{}, sdxerrors.IndexCorrupt("magic_mismatch")
	}
	h := header{
		Version:       binary.LittleEndian.Uint32(b[4:8]),
		DimCount:      binary.LittleEndian.Uint32(b[8:12]),
		TotalElements: binary.LittleEndian.Uint64(b[12:20]),
	}
	if h.Version != formatVersion {
		return header{}, sdxerrors.IndexCorrupt("unsupported_version")
	}
	return h, nil
}

const offsetEntrySize = 4 + 8 + 4 + 4 // dim_id, offset, length, max_weight
const postingElementSize = 4 + 4      // record_id, weight

func writeOffsets(path string, entries []offsetEntry) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return sdxerrors.IndexIOError("create offsets file", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = sdxerrors.IndexIOError("close offsets file", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	buf := make([]byte, offsetEntrySize)
	for _, e := range entries {
		binary.LittleEndian.PutUint32(buf[0:4], e.DimID)
		binary.LittleEndian.PutUint64(buf[4:12], e.Offset)
		binary.LittleEndian.PutUint32(buf[12:16], e.Length)
		binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(e.MaxWeight))
		if _, err = w.Write(buf); err != nil {
			return sdxerrors.IndexIOError("write offset entry", err)
		}
	}
	if err = w.Flush(); err != nil {
		return sdxerrors.IndexIOError("flush offsets file", err)
	}
	return nil
}

func readOffsets(path string, dimCount uint32) ([]offsetEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, sdxerrors.IndexIOError("read offsets file", err)
	}
	want := int(dimCount) * offsetEntrySize
	if len(b) != want {
		return nil, sdxerrors.IndexCorrupt("truncated_offsets")
	}
	entries := make([]offsetEntry, dimCount)
	for i := range entries {
		off := i * offsetEntrySize
		entries[i] = offsetEntry{
			DimID:     binary.LittleEndian.Uint32(b[off : off+4]),
			Offset:    binary.LittleEndian.Uint64(b[off+4 : off+12]),
			Length:    binary.LittleEndian.Uint32(b[off+12 : off+16]),
			MaxWeight: math.Float32frombits(binary.LittleEndian.Uint32(b[off+16 : off+20])),
		}
	}
	return entries, nil
}

func writePostings(path string, dims []uint32, lists map[uint32]*postings.List) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return sdxerrors.IndexIOError("create postings file", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = sdxerrors.IndexIOError("close postings file", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	buf := make([]byte, postingElementSize)
	for _, d := range dims {
		for _, e := range lists[d].Elements() {
			binary.LittleEndian.PutUint32(buf[0:4], e.RecordID)
			binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(e.Weight))
			if _, err = w.Write(buf); err != nil {
				return sdxerrors.IndexIOError("write posting element", err)
			}
		}
	}
	if err = w.Flush(); err != nil {
		return sdxerrors.IndexIOError("flush postings file", err)
	}
	return nil
}

// decodePostings reads length elements starting at byte offset offset out
// of the memory-mapped postings block.
func decodePostings(data []byte, offset uint64, length uint32) ([]postings.Element, error) {
	start := offset
	end := start + uint64(length)*postingElementSize
	if end > uint64(len(data)) {
		return nil, sdxerrors.IndexCorrupt("postings_out_of_range")
	}
	out := make([]postings.Element, length)
	for i := range out {
		b := data[start+uint64(i)*postingElementSize:]
		out[i] = postings.Element{
			RecordID: binary.LittleEndian.Uint32(b[0:4]),
			Weight:   math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		}
	}
	return out, nil
}
