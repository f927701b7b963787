// Package tiffdrv registers a TIFF driver with the imgio registry, backed
// by golang.org/x/image/tiff. Import it for its side effect:
//
//	import _ "github.com/terminus-geospatial/timage/imgio/tiffdrv"
package tiffdrv

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/imgio"
	"golang.org/x/image/tiff"
)

// TIFF files open with one of the two byte-order marks.
var (
	magicLE = []byte{'I', 'I', 42, 0}
	magicBE = []byte{'M', 'M', 0, 42}
)

func init() {
	imgio.Register(Factory{})
}

// Factory creates TIFF resources.
type Factory struct{}

func (Factory) Name() string { return "tiff" }

func hasTiffExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tif" || ext == ".tiff"
}

func (Factory) IsReadSupported(path string) bool {
	if !hasTiffExt(path) {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 4)
	if _, err := f.Read(head); err != nil {
		return false
	}
	return bytes.Equal(head, magicLE) || bytes.Equal(head, magicBE)
}

func (Factory) IsWriteSupported(path string) bool { return hasTiffExt(path) }

func (Factory) CreateReadDriver(path string) (imgio.ReadResource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %v", timage.ErrFileIO, path, err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %q: %v", timage.ErrFileIO, path, err)
	}
	native, err := imgio.BufferFromStdImage(img)
	if err != nil {
		return nil, err
	}
	return &imgio.DecodedReader{Native: native, Rescale: imgio.DefaultRescale()}, nil
}

// Write options: "compression" may be "none", "deflate", or "lzw"
// (horizontal-predictor LZW). The default is deflate.
func (Factory) CreateWriteDriver(path string, format timage.ImageFormat, options map[string]string, blockW, blockH int) (imgio.WriteResource, error) {
	compression := tiff.Deflate
	switch options["compression"] {
	case "", "deflate":
	case "none":
		compression = tiff.Uncompressed
	case "lzw":
		compression = tiff.LZW
	default:
		return nil, fmt.Errorf("%w: unknown tiff compression %q", timage.ErrInvalidConfig, options["compression"])
	}

	native := imgio.NativeWriteFormat(format)
	native.Cols, native.Rows = format.Cols, format.Rows
	return &imgio.EncodeSink{
		Native:  timage.AllocateBuffer(native),
		Rescale: imgio.DefaultRescale(),
		Encode: func(img image.Image) error {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("%w: creating %q: %v", timage.ErrFileIO, path, err)
			}
			defer f.Close()
			opts := &tiff.Options{Compression: compression, Predictor: compression == tiff.LZW}
			if err := tiff.Encode(f, img, opts); err != nil {
				return fmt.Errorf("%w: encoding %q: %v", timage.ErrFileIO, path, err)
			}
			return nil
		},
	}, nil
}
