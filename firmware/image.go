package firmware

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"

	"github.com/Fiddl3/k1-mcu-flasher/protocol"
)

// maxHexSpan bounds the flattened address span of a hex file, guarding
// against stray records scattering data across the address space.
const maxHexSpan = 16 << 20

// Image is an immutable firmware image held in memory.
type Image struct {
	data []byte
}

// Load reads a firmware image from disk. Files ending in .hex or .ihx are
// parsed as Intel HEX and flattened; anything else is taken as raw binary.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open firmware: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihx":
		img, err := loadHex(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return img, nil
	default:
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read firmware: %w", err)
		}
		return &Image{data: data}, nil
	}
}

// FromBytes wraps bytes as an Image. The bytes are copied, so later
// changes to data do not reach the image.
func FromBytes(data []byte) *Image {
	return &Image{data: append([]byte(nil), data...)}
}

// loadHex parses Intel HEX and flattens the data segments into one blob
// starting at the lowest record address. Gaps read as 0xFF, the erased
// flash value.
func loadHex(r io.Reader) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("parse hex: %w", err)
	}

	segs := mem.GetDataSegments()
	if len(segs) == 0 {
		return nil, fmt.Errorf("parse hex: no data records")
	}

	base := segs[0].Address
	end := segs[0].Address + uint32(len(segs[0].Data))
	for _, seg := range segs[1:] {
		if seg.Address < base {
			base = seg.Address
		}
		if segEnd := seg.Address + uint32(len(seg.Data)); segEnd > end {
			end = segEnd
		}
	}
	if span := end - base; span > maxHexSpan {
		return nil, fmt.Errorf("parse hex: data spans %d bytes, refusing to flatten", span)
	}

	data := make([]byte, end-base)
	for i := range data {
		data[i] = 0xFF
	}
	for _, seg := range segs {
		copy(data[seg.Address-base:], seg.Data)
	}

	return &Image{data: data}, nil
}

// Len returns the image size in bytes.
func (img *Image) Len() int {
	return len(img.data)
}

// Sum returns the checksum over the whole image.
func (img *Image) Sum() byte {
	return protocol.Sum(img.data)
}

// Bytes returns the image contents. The slice is shared with the image and
// must not be modified.
func (img *Image) Bytes() []byte {
	return img.data
}

// Chunk is one sector-sized window of the image, ready for transfer.
type Chunk struct {
	// Index is the zero-based position of the chunk in the transfer order
	Index int

	// Data is the chunk's window into the image. All chunks except the
	// last are exactly the chunk size; the last may be shorter. No chunk
	// is ever padded.
	Data []byte

	// Sum is the chunk's transfer checksum
	Sum byte
}

// Chunker walks an image in transfer order, one chunk at a time. It is
// lazy and finite. Reset restarts it from the beginning for a fresh update
// attempt; a chunker is never resumed mid-sequence.
type Chunker struct {
	data []byte
	size int
	next int
	idx  int
}

// Chunks returns a chunker over the image. size is the chunk byte count
// derived from the sector size the bootloader reported; it must be
// positive.
func (img *Image) Chunks(size int) *Chunker {
	if size <= 0 {
		panic("firmware: chunk size must be positive")
	}
	return &Chunker{data: img.data, size: size}
}

// Count returns the total number of chunks the chunker yields.
func (c *Chunker) Count() int {
	return (len(c.data) + c.size - 1) / c.size
}

// Next returns the next chunk in order, or ok=false once the image is
// exhausted.
func (c *Chunker) Next() (Chunk, bool) {
	if c.next >= len(c.data) {
		return Chunk{}, false
	}

	end := c.next + c.size
	if end > len(c.data) {
		end = len(c.data)
	}

	chunk := Chunk{
		Index: c.idx,
		Data:  c.data[c.next:end],
		Sum:   protocol.Sum(c.data[c.next:end]),
	}
	c.next = end
	c.idx++
	return chunk, true
}

// Reset restarts the chunker from the first chunk.
func (c *Chunker) Reset() {
	c.next = 0
	c.idx = 0
}
