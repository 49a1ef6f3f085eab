package fileformat

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	xxh3 "github.com/zeebo/xxh3"

	"github.com/qrv0/sparrow/internal/matrix"
	"github.com/qrv0/sparrow/internal/sparse"
)

// Meta is the JSON document stored in the meta section.
type Meta struct {
	FormatVersion int                  `json:"format_version"`
	Rows          int                  `json:"rows"`
	Cols          int                  `json:"cols"`
	NNZ           int                  `json:"nnz"`
	DType         string               `json:"dtype"`
	Checksums     map[string]Checksums `json:"checksum_index"`
}

// Checksums holds rolling xxh3-64 hashes of an uncompressed section.
type Checksums struct {
	Algo      string   `json:"algo"`
	ChunkSize int      `json:"chunk_size"`
	Count     int      `json:"count"`
	HashesHex []string `json:"hashes_hex"`
}

// Options controls how a matrix is written.
type Options struct {
	// Flags is applied to every data section (FlagCompZSTD, FlagCompLZ4 or 0).
	Flags uint32
	// ChunkSize is the checksum chunk in bytes; 0 means 64 KiB.
	ChunkSize int
}

const defaultChunk = 64 << 10

// DType names the element type T as stored in meta.
func DType[T sparse.Float]() string {
	var zero T
	if _, ok := any(zero).(float32); ok {
		return "float32"
	}
	return "float64"
}

func rollXXH3(data []byte, chunk int) []uint64 {
	hashes := make([]uint64, 0, (len(data)+chunk-1)/chunk)
	for i := 0; i < len(data); i += chunk {
		end := min(i+chunk, len(data))
		hashes = append(hashes, xxh3.Hash(data[i:end]))
	}
	return hashes
}

func checksums(data []byte, chunk int) Checksums {
	hs := rollXXH3(data, chunk)
	hex := make([]string, len(hs))
	for i, h := range hs {
		hex[i] = fmt.Sprintf("%016x", h)
	}
	return Checksums{Algo: "xxh3-64", ChunkSize: chunk, Count: len(hs), HashesHex: hex}
}

func encodeIndex(v []int32) []byte {
	out := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[4*i:], uint32(x))
	}
	return out
}

func decodeIndex(b []byte) ([]int32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("index section length %d not a multiple of 4", len(b))
	}
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

func encodeValues[T sparse.Float](v []T) []byte {
	switch vals := any(v).(type) {
	case []float32:
		out := make([]byte, 4*len(vals))
		for i, x := range vals {
			binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(x))
		}
		return out
	case []float64:
		out := make([]byte, 8*len(vals))
		for i, x := range vals {
			binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(x))
		}
		return out
	}
	panic("fileformat: unreachable element type")
}

func decodeValues[T sparse.Float](b []byte) ([]T, error) {
	var zero T
	switch any(zero).(type) {
	case float32:
		if len(b)%4 != 0 {
			return nil, fmt.Errorf("float32 section length %d not a multiple of 4", len(b))
		}
		out := make([]float32, len(b)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		}
		return any(out).([]T), nil
	case float64:
		if len(b)%8 != 0 {
			return nil, fmt.Errorf("float64 section length %d not a multiple of 8", len(b))
		}
		out := make([]float64, len(b)/8)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
		}
		return any(out).([]T), nil
	}
	panic("fileformat: unreachable element type")
}

// WriteCOO stores coo at path with per-section checksums in the meta section.
func WriteCOO[T sparse.Float](path string, coo *matrix.COO[T], opts Options) error {
	if err := coo.Validate(); err != nil {
		return err
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunk
	}
	data := map[uint32][]byte{
		TypeRowInd: encodeIndex(coo.RowInd),
		TypeColInd: encodeIndex(coo.ColInd),
		TypeValues: encodeValues(coo.Val),
	}
	meta := Meta{
		FormatVersion: formatVersion,
		Rows:          coo.Rows,
		Cols:          coo.Cols,
		NNZ:           coo.NNZ(),
		DType:         DType[T](),
		Checksums:     map[string]Checksums{},
	}
	for id, b := range data {
		meta.Checksums[strconv.Itoa(int(id))] = checksums(b, chunk)
	}
	mb, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	w := NewWriter()
	w.AddSection(TypeMeta, mb, 0)
	for _, id := range []uint32{TypeRowInd, TypeColInd, TypeValues} {
		w.AddSection(id, data[id], opts.Flags)
	}
	return w.Write(path)
}

// Meta decodes the meta section.
func (r *Reader) Meta() (*Meta, error) {
	b, err := r.SectionUncompressed(TypeMeta)
	if err != nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("spmx: meta: %w", err)
	}
	return &m, nil
}

// Verify recomputes the checksums of every data section. It returns the
// mismatching section ids; an error means the file could not be read.
func (r *Reader) Verify() ([]uint32, error) {
	m, err := r.Meta()
	if err != nil {
		return nil, err
	}
	var bad []uint32
	for _, id := range []uint32{TypeRowInd, TypeColInd, TypeValues} {
		want, ok := m.Checksums[strconv.Itoa(int(id))]
		if !ok || want.ChunkSize <= 0 {
			bad = append(bad, id)
			continue
		}
		data, err := r.SectionUncompressed(id)
		if err != nil {
			return nil, fmt.Errorf("spmx: section %d: %w", id, err)
		}
		have := checksums(data, want.ChunkSize)
		if !slices.Equal(have.HashesHex, want.HashesHex) {
			bad = append(bad, id)
		}
	}
	return bad, nil
}

// ReadCOO loads a matrix written by WriteCOO. T must match the stored dtype.
func ReadCOO[T sparse.Float](path string) (*matrix.COO[T], error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	m, err := r.Meta()
	if err != nil {
		return nil, err
	}
	if m.DType != DType[T]() {
		return nil, fmt.Errorf("spmx: stored dtype %s, requested %s", m.DType, DType[T]())
	}
	rowsB, err := r.SectionUncompressed(TypeRowInd)
	if err != nil {
		return nil, err
	}
	colsB, err := r.SectionUncompressed(TypeColInd)
	if err != nil {
		return nil, err
	}
	valsB, err := r.SectionUncompressed(TypeValues)
	if err != nil {
		return nil, err
	}
	coo := &matrix.COO[T]{Rows: m.Rows, Cols: m.Cols}
	if coo.RowInd, err = decodeIndex(rowsB); err != nil {
		return nil, err
	}
	if coo.ColInd, err = decodeIndex(colsB); err != nil {
		return nil, err
	}
	if coo.Val, err = decodeValues[T](valsB); err != nil {
		return nil, err
	}
	if coo.NNZ() != m.NNZ {
		return nil, fmt.Errorf("spmx: meta nnz %d, stored %d", m.NNZ, coo.NNZ())
	}
	if err := coo.Validate(); err != nil {
		return nil, err
	}
	return coo, nil
}
