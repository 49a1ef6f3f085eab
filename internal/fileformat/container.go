package fileformat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"
)

var magic = [8]byte{'S', 'P', 'M', 'X', 0, 0, 0, 0}

const formatVersion = 1

// Section type ids.
const (
	TypeMeta   uint32 = 1
	TypeRowInd uint32 = 2
	TypeColInd uint32 = 3
	TypeValues uint32 = 4
)

// Per-section compression flags.
const (
	FlagCompZSTD uint32 = 1 << 0
	FlagCompLZ4  uint32 = 1 << 1
)

const sectionAlign = 4096

type section struct {
	TypeID uint32
	Data   []byte
	Flags  uint32
}

// Writer accumulates sections and writes them as one container file.
type Writer struct {
	sections []section
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) AddSection(t uint32, data []byte, flags uint32) {
	w.sections = append(w.sections, section{TypeID: t, Data: data, Flags: flags})
}

// codec compresses one section payload.
type codec struct {
	flag   uint32
	encode func([]byte) ([]byte, error)
	decode func([]byte) ([]byte, error)
}

// Shared zstd state; EncodeAll and DecodeAll are safe for concurrent use.
var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) { return zstd.NewWriter(nil) })
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) { return zstd.NewReader(nil) })
)

var codecs = [...]codec{
	{
		flag: FlagCompZSTD,
		encode: func(b []byte) ([]byte, error) {
			enc, err := zstdEncoder()
			if err != nil {
				return nil, err
			}
			return enc.EncodeAll(b, nil), nil
		},
		decode: func(b []byte) ([]byte, error) {
			dec, err := zstdDecoder()
			if err != nil {
				return nil, err
			}
			return dec.DecodeAll(b, nil)
		},
	},
	{
		flag: FlagCompLZ4,
		encode: func(b []byte) ([]byte, error) {
			var buf bytes.Buffer
			zw := lz4.NewWriter(&buf)
			if _, err := zw.ReadFrom(bytes.NewReader(b)); err != nil {
				return nil, err
			}
			if err := zw.Close(); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		decode: func(b []byte) ([]byte, error) {
			return io.ReadAll(lz4.NewReader(bytes.NewReader(b)))
		},
	},
}

// codecFor returns the codec selected by flags, or nil for a raw section.
func codecFor(flags uint32) *codec {
	for i := range codecs {
		if flags&codecs[i].flag != 0 {
			return &codecs[i]
		}
	}
	return nil
}

// sectionStart rounds x up to the next section boundary.
func sectionStart(x int64) int64 {
	return (x + sectionAlign - 1) / sectionAlign * sectionAlign
}

type header struct{ Ver, Num, Res uint32 }

type tocEntry struct {
	TypeID uint32
	Offset uint64
	Size   uint64
	Flags  uint32
}

// On-disk sizes of the magic plus header, and of one packed tocEntry.
const (
	headerSize   = int64(len(magic)) + 12
	tocEntrySize = 24
)

// Write stores all sections at path, compressing according to each flag.
func (w *Writer) Write(path string) (err error) {
	if len(w.sections) == 0 {
		return errors.New("spmx: no sections")
	}
	payloads := make([][]byte, len(w.sections))
	for i, s := range w.sections {
		payloads[i] = s.Data
		if c := codecFor(s.Flags); c != nil {
			if payloads[i], err = c.encode(s.Data); err != nil {
				return fmt.Errorf("spmx: compress section %d: %w", s.TypeID, err)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := f.Write(magic[:]); err != nil {
		return err
	}
	hdr := header{Ver: formatVersion, Num: uint32(len(w.sections))}
	if err := binary.Write(f, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	toc := make([]tocEntry, len(w.sections))
	offset := sectionStart(headerSize + tocEntrySize*int64(len(w.sections)))
	for i, s := range w.sections {
		toc[i] = tocEntry{TypeID: s.TypeID, Offset: uint64(offset), Size: uint64(len(payloads[i])), Flags: s.Flags}
		offset = sectionStart(offset + int64(len(payloads[i])))
	}
	for i := range toc {
		if err := binary.Write(f, binary.LittleEndian, &toc[i]); err != nil {
			return err
		}
	}
	for i := range toc {
		if _, err := f.WriteAt(payloads[i], int64(toc[i].Offset)); err != nil {
			return err
		}
	}
	return nil
}

// Reader gives random access to the sections of a container file.
type Reader struct {
	f   *os.File
	TOC []tocEntry
}

// Open reads the header and table of contents of path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(f, head); err != nil {
		f.Close()
		return nil, err
	}
	if !bytes.Equal(head, magic[:]) {
		f.Close()
		return nil, errors.New("not an SPMX file")
	}
	var hdr header
	if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
		f.Close()
		return nil, err
	}
	if hdr.Ver != formatVersion {
		f.Close()
		return nil, fmt.Errorf("spmx: unsupported version %d", hdr.Ver)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := st.Size()
	if int64(hdr.Num) > (size-headerSize)/tocEntrySize {
		f.Close()
		return nil, fmt.Errorf("spmx: %d toc entries do not fit in %d bytes", hdr.Num, size)
	}
	toc := make([]tocEntry, hdr.Num)
	for i := range toc {
		if err := binary.Read(f, binary.LittleEndian, &toc[i]); err != nil {
			f.Close()
			return nil, err
		}
		if e := toc[i]; e.Offset > uint64(size) || e.Size > uint64(size)-e.Offset {
			f.Close()
			return nil, fmt.Errorf("spmx: section %d at %d+%d exceeds file size %d", e.TypeID, e.Offset, e.Size, size)
		}
	}
	return &Reader{f: f, TOC: toc}, nil
}

func (r *Reader) Close() error { return r.f.Close() }

func (r *Reader) entry(typeID uint32) (tocEntry, error) {
	for _, e := range r.TOC {
		if e.TypeID == typeID {
			return e, nil
		}
	}
	return tocEntry{}, fmt.Errorf("section %d not found", typeID)
}

// Section returns the stored (possibly compressed) bytes of a section.
func (r *Reader) Section(typeID uint32) ([]byte, error) {
	e, err := r.entry(typeID)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, e.Size)
	if _, err := r.f.ReadAt(buf, int64(e.Offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

// SectionUncompressed returns the raw or decompressed payload depending on flags.
func (r *Reader) SectionUncompressed(typeID uint32) ([]byte, error) {
	e, err := r.entry(typeID)
	if err != nil {
		return nil, err
	}
	buf, err := r.Section(typeID)
	if err != nil {
		return nil, err
	}
	if c := codecFor(e.Flags); c != nil {
		return c.decode(buf)
	}
	return buf, nil
}
