// Package tilestore implements timage's native tiled raster format and
// registers it with the imgio registry under the ".tls" extension.
//
// A tile store keeps the raster as a grid of independently zstd-compressed
// tiles behind a fixed index, so blocks can be read and written without
// touching the rest of the file. It is the only bundled driver with true
// block I/O and nodata support, which makes it the natural sink and source
// for block-based pipelines.
//
// Import it for its side effect:
//
//	import _ "github.com/terminus-geospatial/timage/imgio/tilestore"
package tilestore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/imgio"
)

// File layout, all little-endian:
//
//	magic      [4]byte "TMTS"
//	version    uint32
//	cols       uint32
//	rows       uint32
//	planes     uint32
//	pixelFmt   uint8
//	chanKind   uint8
//	premult    uint8
//	hasNodata  uint8
//	nodata     float64
//	blockW     uint32
//	blockH     uint32
//	tileCount  uint32
//	index      tileCount × { offset uint64, compressed uint32, raw uint32 }
//	payloads   zstd frames
//
// Tiles are ordered plane-major, then row-major within a plane.

var magic = [4]byte{'T', 'M', 'T', 'S'}

const (
	version          = 1
	headerSize       = 4 + 4 + 3*4 + 4 + 8 + 2*4 + 4
	indexEntrySize   = 8 + 4 + 4
	DefaultBlockSize = 256
)

func init() {
	imgio.Register(Factory{})
}

// Factory creates tile-store resources.
type Factory struct{}

func (Factory) Name() string { return "tilestore" }

func hasExt(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".tls")
}

func (Factory) IsReadSupported(path string) bool {
	if !hasExt(path) {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var head [4]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return false
	}
	return head == magic
}

func (Factory) IsWriteSupported(path string) bool { return hasExt(path) }

type header struct {
	format    timage.ImageFormat
	hasNodata bool
	nodata    float64
	blockW    int
	blockH    int
}

func (h header) tilesX() int { return (h.format.Cols + h.blockW - 1) / h.blockW }
func (h header) tilesY() int { return (h.format.Rows + h.blockH - 1) / h.blockH }
func (h header) tileCount() int {
	return h.tilesX() * h.tilesY() * h.format.Planes
}

// tileBBox returns the clipped extent of tile (tx, ty).
func (h header) tileBBox(tx, ty int) timage.Rect {
	return timage.Rect{
		MinX: tx * h.blockW, MinY: ty * h.blockH,
		Width: h.blockW, Height: h.blockH,
	}.Intersect(h.format.BBox())
}

func (h header) marshal(index []indexEntry) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	le := binary.LittleEndian
	var tmp [8]byte
	put32 := func(v uint32) { le.PutUint32(tmp[:4], v); buf.Write(tmp[:4]) }
	put64 := func(v uint64) { le.PutUint64(tmp[:8], v); buf.Write(tmp[:8]) }
	put32(version)
	put32(uint32(h.format.Cols))
	put32(uint32(h.format.Rows))
	put32(uint32(h.format.Planes))
	flags := []byte{byte(h.format.PixelType), byte(h.format.ChannelKind), b2u(h.format.Premultiply), b2u(h.hasNodata)}
	buf.Write(flags)
	put64(math.Float64bits(h.nodata))
	put32(uint32(h.blockW))
	put32(uint32(h.blockH))
	put32(uint32(len(index)))
	for _, e := range index {
		put64(e.offset)
		put32(e.compressed)
		put32(e.raw)
	}
	return buf.Bytes()
}

type indexEntry struct {
	offset     uint64
	compressed uint32
	raw        uint32
}

func b2u(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func parseHeader(r io.ReaderAt) (header, []indexEntry, error) {
	raw := make([]byte, headerSize)
	if _, err := r.ReadAt(raw, 0); err != nil {
		return header{}, nil, fmt.Errorf("%w: reading tilestore header: %v", timage.ErrFileIO, err)
	}
	if !bytes.Equal(raw[0:4], magic[:]) {
		return header{}, nil, fmt.Errorf("%w: not a tilestore file", timage.ErrParsing)
	}
	le := binary.LittleEndian
	if v := le.Uint32(raw[4:]); v != version {
		return header{}, nil, fmt.Errorf("%w: unsupported tilestore version %d", timage.ErrParsing, v)
	}
	var h header
	h.format.Cols = int(le.Uint32(raw[8:]))
	h.format.Rows = int(le.Uint32(raw[12:]))
	h.format.Planes = int(le.Uint32(raw[16:]))
	h.format.PixelType = timage.PixelFormat(raw[20])
	h.format.ChannelKind = timage.ChannelType(raw[21])
	h.format.Premultiply = raw[22] != 0
	h.hasNodata = raw[23] != 0
	h.nodata = math.Float64frombits(le.Uint64(raw[24:]))
	h.blockW = int(le.Uint32(raw[32:]))
	h.blockH = int(le.Uint32(raw[36:]))
	count := int(le.Uint32(raw[40:]))
	if err := h.format.Validate(); err != nil {
		return header{}, nil, fmt.Errorf("%w: tilestore header: %v", timage.ErrParsing, err)
	}
	if h.blockW <= 0 || h.blockH <= 0 || count != h.tileCount() {
		return header{}, nil, fmt.Errorf("%w: inconsistent tilestore tiling", timage.ErrParsing)
	}

	idxRaw := make([]byte, count*indexEntrySize)
	if _, err := r.ReadAt(idxRaw, headerSize); err != nil {
		return header{}, nil, fmt.Errorf("%w: reading tilestore index: %v", timage.ErrFileIO, err)
	}
	index := make([]indexEntry, count)
	for i := range index {
		off := i * indexEntrySize
		index[i] = indexEntry{
			offset:     le.Uint64(idxRaw[off:]),
			compressed: le.Uint32(idxRaw[off+8:]),
			raw:        le.Uint32(idxRaw[off+12:]),
		}
	}
	return h, index, nil
}

// Reader serves block reads from an open tile store.
//
// Access to the file handle and the shared zstd decoder is serialized by an
// internal mutex; decompressed tile handling happens outside it.
type Reader struct {
	mu    sync.Mutex
	f     *os.File
	h     header
	index []indexEntry
	dec   *zstd.Decoder
}

var _ imgio.ReadResource = (*Reader)(nil)

func (Factory) CreateReadDriver(path string) (imgio.ReadResource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %v", timage.ErrFileIO, path, err)
	}
	h, index, err := parseHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: zstd init: %v", timage.ErrFileIO, err)
	}
	return &Reader{f: f, h: h, index: index, dec: dec}, nil
}

func (r *Reader) Format() timage.ImageFormat { return r.h.format }
func (r *Reader) HasBlockRead() bool         { return true }
func (r *Reader) BlockReadSize() (int, int)  { return r.h.blockW, r.h.blockH }
func (r *Reader) HasNoDataRead() bool        { return r.h.hasNodata }
func (r *Reader) NoDataRead() float64        { return r.h.nodata }

// readTile fetches and decompresses one tile under the driver mutex.
func (r *Reader) readTile(idx int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.index[idx]
	comp := make([]byte, e.compressed)
	if _, err := r.f.ReadAt(comp, int64(e.offset)); err != nil {
		return nil, fmt.Errorf("%w: reading tile %d: %v", timage.ErrFileIO, idx, err)
	}
	raw, err := r.dec.DecodeAll(comp, make([]byte, 0, e.raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing tile %d: %v", timage.ErrFileIO, idx, err)
	}
	if len(raw) != int(e.raw) {
		return nil, fmt.Errorf("%w: tile %d decompressed to %d bytes, want %d",
			timage.ErrParsing, idx, len(raw), e.raw)
	}
	return raw, nil
}

func (r *Reader) Read(dest timage.ImageBuffer, bbox timage.Rect) error {
	if !r.h.format.BBox().ContainsRect(bbox) {
		return fmt.Errorf("%w: read %+v outside %v", timage.ErrBounds, bbox, r.h.format)
	}
	tilesX, tilesY := r.h.tilesX(), r.h.tilesY()
	for p := 0; p < r.h.format.Planes; p++ {
		for ty := bbox.MinY / r.h.blockH; ty <= (bbox.MaxY()-1)/r.h.blockH && ty < tilesY; ty++ {
			for tx := bbox.MinX / r.h.blockW; tx <= (bbox.MaxX()-1)/r.h.blockW && tx < tilesX; tx++ {
				tileBBox := r.h.tileBBox(tx, ty)
				overlap := tileBBox.Intersect(bbox)
				if overlap.Empty() {
					continue
				}
				raw, err := r.readTile(p*tilesX*tilesY + ty*tilesX + tx)
				if err != nil {
					return err
				}
				tileFormat := r.h.format
				tileFormat.Cols, tileFormat.Rows = tileBBox.Width, tileBBox.Height
				tileFormat.Planes = 1
				tileBuf := timage.NewImageBuffer(raw, tileFormat)

				destWin := dest
				destWin.Data = dest.At(overlap.MinX-bbox.MinX, overlap.MinY-bbox.MinY, p)
				destWin.Format.Cols = overlap.Width
				destWin.Format.Rows = overlap.Height
				destWin.Format.Planes = 1
				src := tileBuf.Cropped(overlap.Translate(-tileBBox.MinX, -tileBBox.MinY))
				if err := imgio.ConvertedRead(destWin, src, imgio.DefaultRescale()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Close releases the file handle and decoder.
func (r *Reader) Close() error {
	r.dec.Close()
	return r.f.Close()
}

// Writer accumulates compressed tiles and writes the store on Flush.
type Writer struct {
	mu     sync.Mutex
	path   string
	h      header
	tiles  [][]byte // compressed payloads, indexed like the file index
	raw    []uint32 // uncompressed sizes
	enc    *zstd.Encoder
	closed bool
}

var _ imgio.WriteResource = (*Writer)(nil)

// Write options: "nodata" (float) sets the nodata sentinel up front.
func (Factory) CreateWriteDriver(path string, format timage.ImageFormat, options map[string]string, blockW, blockH int) (imgio.WriteResource, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if _, err := format.BytesPerPixel(); err != nil {
		return nil, err
	}
	if blockW <= 0 {
		blockW = DefaultBlockSize
	}
	if blockH <= 0 {
		blockH = DefaultBlockSize
	}
	h := header{format: format, blockW: blockW, blockH: blockH}
	if v, ok := options["nodata"]; ok {
		var nodata float64
		if _, err := fmt.Sscanf(v, "%g", &nodata); err != nil {
			return nil, fmt.Errorf("%w: bad nodata option %q", timage.ErrParsing, v)
		}
		h.hasNodata = true
		h.nodata = nodata
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd init: %v", timage.ErrFileIO, err)
	}
	return &Writer{
		path:  path,
		h:     h,
		tiles: make([][]byte, h.tileCount()),
		raw:   make([]uint32, h.tileCount()),
		enc:   enc,
	}, nil
}

func (w *Writer) HasBlockWrite() bool        { return true }
func (w *Writer) BlockWriteSize() (int, int) { return w.h.blockW, w.h.blockH }

func (w *Writer) SetBlockWriteSize(bw, bh int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if bw > 0 && bh > 0 && !w.anyTileLocked() {
		w.h.blockW, w.h.blockH = bw, bh
		w.tiles = make([][]byte, w.h.tileCount())
		w.raw = make([]uint32, w.h.tileCount())
	}
}

func (w *Writer) anyTileLocked() bool {
	for _, t := range w.tiles {
		if t != nil {
			return true
		}
	}
	return false
}

func (w *Writer) HasNoDataWrite() bool { return true }

func (w *Writer) SetNoDataWrite(v float64) {
	w.mu.Lock()
	w.h.hasNodata = true
	w.h.nodata = v
	w.mu.Unlock()
}

// Write stores the tiles covered by bbox. Writes must be tile-aligned: the
// bbox must coincide with whole (clipped) tiles, which is what WriteImage
// produces when it honors BlockWriteSize.
func (w *Writer) Write(src timage.ImageBuffer, bbox timage.Rect) error {
	if !w.h.format.BBox().ContainsRect(bbox) {
		return fmt.Errorf("%w: write %+v outside %v", timage.ErrBounds, bbox, w.h.format)
	}
	tilesX, tilesY := w.h.tilesX(), w.h.tilesY()
	for p := 0; p < w.h.format.Planes; p++ {
		for ty := bbox.MinY / w.h.blockH; ty <= (bbox.MaxY()-1)/w.h.blockH && ty < tilesY; ty++ {
			for tx := bbox.MinX / w.h.blockW; tx <= (bbox.MaxX()-1)/w.h.blockW && tx < tilesX; tx++ {
				tileBBox := w.h.tileBBox(tx, ty)
				if !bbox.ContainsRect(tileBBox) {
					return fmt.Errorf("%w: write %+v does not cover tile %+v",
						timage.ErrInvalidConfig, bbox, tileBBox)
				}

				tileFormat := w.h.format
				tileFormat.Cols, tileFormat.Rows = tileBBox.Width, tileBBox.Height
				tileFormat.Planes = 1
				tileBuf := timage.AllocateBuffer(tileFormat)

				srcWin := src
				srcWin.Data = src.At(tileBBox.MinX-bbox.MinX, tileBBox.MinY-bbox.MinY, p)
				srcWin.Format.Cols = tileBBox.Width
				srcWin.Format.Rows = tileBBox.Height
				srcWin.Format.Planes = 1
				if err := timage.Convert(tileBuf, srcWin, imgio.DefaultRescale()); err != nil {
					return err
				}

				idx := p*tilesX*tilesY + ty*tilesX + tx
				w.mu.Lock()
				w.tiles[idx] = w.enc.EncodeAll(tileBuf.Data, nil)
				w.raw[idx] = uint32(len(tileBuf.Data))
				w.mu.Unlock()
			}
		}
	}
	return nil
}

// Flush writes the header, index, and every stored tile to disk. Tiles never
// written are stored as zstd frames of zeroed pixels.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}

	bpp, err := w.h.format.BytesPerPixel()
	if err != nil {
		return err
	}
	tilesX, tilesY := w.h.tilesX(), w.h.tilesY()
	index := make([]indexEntry, len(w.tiles))
	offset := uint64(headerSize + len(w.tiles)*indexEntrySize)
	for i, t := range w.tiles {
		if t == nil {
			tx, ty := i%tilesX, (i/tilesX)%tilesY
			tb := w.h.tileBBox(tx, ty)
			zero := make([]byte, tb.Area()*bpp)
			w.tiles[i] = w.enc.EncodeAll(zero, nil)
			w.raw[i] = uint32(len(zero))
			t = w.tiles[i]
		}
		index[i] = indexEntry{offset: offset, compressed: uint32(len(t)), raw: w.raw[i]}
		offset += uint64(len(t))
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("%w: creating %q: %v", timage.ErrFileIO, w.path, err)
	}
	defer f.Close()
	if _, err := f.Write(w.h.marshal(index)); err != nil {
		return fmt.Errorf("%w: writing %q: %v", timage.ErrFileIO, w.path, err)
	}
	for _, t := range w.tiles {
		if _, err := f.Write(t); err != nil {
			return fmt.Errorf("%w: writing %q: %v", timage.ErrFileIO, w.path, err)
		}
	}
	w.closed = true
	return nil
}
