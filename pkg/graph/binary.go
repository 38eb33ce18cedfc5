package graph

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"unsafe"
)

const (
	magicBytes = "CHCORE01"
	version    = uint32(3)
	maxNodes   = 50_000_000
	maxEdges   = 200_000_000
)

type fileHeader struct {
	Magic        [8]byte
	Version      uint32
	NumNodes     uint32
	NumBaseEdges uint32
	NumShortcuts uint32
}

// section is one array of the file body.
type section struct {
	name  string
	write func(io.Writer) error
	read  func(io.Reader) error
}

// sections lists the body arrays in file order. The lengths are only used
// when reading.
func (c *CHGraph) sections(hdr fileHeader) []section {
	n := int(hdr.NumNodes)
	m := int(hdr.NumBaseEdges + hdr.NumShortcuts)
	return []section{
		slab("NodeLat", &c.NodeLat, n),
		slab("NodeLon", &c.NodeLon, n),
		slab("Rank", &c.Rank, n),
		flags("IsCore", &c.IsCore, n),
		slab("EdgeFrom", &c.EdgeFrom, m),
		slab("EdgeTo", &c.EdgeTo, m),
		slab("EdgeWeight", &c.EdgeWeight, m),
		slab("EdgeSkip1", &c.EdgeSkip1, m),
		slab("EdgeSkip2", &c.EdgeSkip2, m),
		slab("OrigID", &c.OrigID, int(hdr.NumBaseEdges)),
	}
}

// WriteBinary serializes a hierarchy to path. The file is written to a
// temporary sibling and renamed into place, so readers never see a partial
// file. Adjacency arrays are not stored; ReadBinary rebuilds them.
func WriteBinary(path string, chg *CHGraph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	w := &crcWriter{w: f, hash: crc32.NewIEEE()}
	hdr := fileHeader{
		Version:      version,
		NumNodes:     chg.NumNodes,
		NumBaseEdges: chg.NumBaseEdges,
		NumShortcuts: chg.NumShortcuts(),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range chg.sections(hdr) {
		if err := s.write(w); err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
	}
	if err := binary.Write(f, binary.LittleEndian, w.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadBinary deserializes a hierarchy written by WriteBinary and checks its
// invariants before returning it.
func ReadBinary(path string) (*CHGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	r := &crcReader{r: f, hash: crc32.NewIEEE()}
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := hdr.check(); err != nil {
		return nil, err
	}

	chg := &CHGraph{NumNodes: hdr.NumNodes, NumBaseEdges: hdr.NumBaseEdges}
	for _, s := range chg.sections(hdr) {
		if err := s.read(r); err != nil {
			return nil, fmt.Errorf("read %s: %w", s.name, err)
		}
	}

	computed := r.hash.Sum32()
	var stored uint32
	if err := binary.Read(f, binary.LittleEndian, &stored); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if stored != computed {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", stored, computed)
	}

	for e := range chg.EdgeFrom {
		if chg.EdgeFrom[e] >= hdr.NumNodes || chg.EdgeTo[e] >= hdr.NumNodes {
			return nil, fmt.Errorf("edge %d endpoint out of range", e)
		}
	}

	// Ranks must be a permutation before the indexes can be built.
	if err := chg.validateRanks(); err != nil {
		return nil, err
	}
	chg.buildIndexes()
	if err := chg.Validate(); err != nil {
		return nil, err
	}
	return chg, nil
}

func (h fileHeader) check() error {
	switch {
	case string(h.Magic[:]) != magicBytes:
		return fmt.Errorf("invalid magic bytes: %q", h.Magic)
	case h.Version != version:
		return fmt.Errorf("unsupported version: %d", h.Version)
	case h.NumNodes > maxNodes:
		return fmt.Errorf("NumNodes %d exceeds limit %d", h.NumNodes, maxNodes)
	case uint64(h.NumBaseEdges)+uint64(h.NumShortcuts) > maxEdges:
		return fmt.Errorf("edge count exceeds limit %d", maxEdges)
	}
	return nil
}

// slab stores a numeric array as its raw in-memory bytes.
func slab[T uint32 | int32 | int64 | float64](name string, s *[]T, n int) section {
	return section{
		name: name,
		write: func(w io.Writer) error {
			_, err := w.Write(bytesOf(*s))
			return err
		},
		read: func(r io.Reader) error {
			v := make([]T, n)
			if _, err := io.ReadFull(r, bytesOf(v)); err != nil {
				return err
			}
			*s = v
			return nil
		},
	}
}

// flags stores a bool array as one byte per entry.
func flags(name string, s *[]bool, n int) section {
	return section{
		name: name,
		write: func(w io.Writer) error {
			b := make([]byte, len(*s))
			for i, v := range *s {
				if v {
					b[i] = 1
				}
			}
			_, err := w.Write(b)
			return err
		},
		read: func(r io.Reader) error {
			b := make([]byte, n)
			if _, err := io.ReadFull(r, b); err != nil {
				return err
			}
			v := make([]bool, n)
			for i, x := range b {
				v[i] = x != 0
			}
			*s = v
			return nil
		},
	}
}

func bytesOf[T uint32 | int32 | int64 | float64](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
}

// crcWriter and crcReader checksum everything passing through them.
type crcWriter struct {
	w    io.Writer
	hash hash.Hash32
}

func (cw *crcWriter) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crcReader struct {
	r    io.Reader
	hash hash.Hash32
}

func (cr *crcReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
