// Package firmware loads MCU firmware images and slices them into the
// sector-sized chunks the bootloader transfer protocol expects.
//
// # Input Formats
//
// K1 MCU firmware ships as a raw binary blob, which Load reads verbatim.
// Files ending in .hex or .ihx are parsed as Intel HEX and flattened into
// one contiguous blob: the lowest record address becomes offset zero and
// gaps between records are filled with 0xFF, the value erased flash reads
// as.
//
// # Chunking
//
// The bootloader reports its flash write granularity during an update, and
// the image is transferred in chunks of that size:
//
//	img, err := firmware.Load("mcu.bin")
//	chunks := img.Chunks(1024)
//	for {
//	    chunk, ok := chunks.Next()
//	    if !ok {
//	        break
//	    }
//	    // send chunk.Data followed by its checksum
//	}
//
// Chunks are produced lazily in transfer order. The last chunk may be
// shorter than the chunk size and is never padded; concatenating all
// chunks reproduces the image exactly.
package firmware
