package feature

import (
	"fmt"
	"log/slog"

	"github.com/terminus-geospatial/timage"
)

// Config describes a detector configuration. Concrete driver packages
// provide their own parameter structs satisfying this interface.
type Config interface {
	// MaxFeatures is the desired total number of keypoints, 0 for the
	// detector's default.
	MaxFeatures() int

	// TileSize is the tile shape the detector prefers for tiled detection.
	TileSize() (w, h int)

	// AllowCustomTileSize reports whether callers may override TileSize.
	AllowCustomTileSize() bool

	// SupportsDescriptors reports whether the driver can extract
	// descriptors.
	SupportsDescriptors() bool
}

// Detector locates interest points in image data. Implementations receive
// byte-level buffers and use PrepareBuffer to coerce the input into their
// working format.
type Detector interface {
	// Detect returns interest points for the buffer. With
	// castIfUnsupported the input is converted to the detector's working
	// channel kind when it differs; otherwise a mismatch fails.
	// maxPointsOverride bounds the result when positive.
	Detect(buf timage.ImageBuffer, castIfUnsupported bool, maxPointsOverride int) ([]InterestPoint, error)

	// Extract fills the Descriptor field of the given points. Only
	// supported when the detector's config advertises descriptors;
	// otherwise it fails with ErrNotImplemented.
	Extract(buf timage.ImageBuffer, points []InterestPoint, castIfUnsupported bool) error

	Config() Config
	Name() string
}

// DetectImage materializes a view and runs the detector over it.
func DetectImage[P any](det Detector, img timage.Image[P], castIfUnsupported bool, maxPointsOverride int) ([]InterestPoint, error) {
	mem, err := timage.Materialize(img)
	if err != nil {
		return nil, err
	}
	timage.Logger().Debug("computing interest points",
		slog.Int("cols", mem.Cols()), slog.Int("rows", mem.Rows()),
		slog.String("detector", det.Name()))
	return det.Detect(mem.Buffer(), castIfUnsupported, maxPointsOverride)
}

// ExtractImage materializes a view and extracts descriptors for points.
func ExtractImage[P any](det Detector, img timage.Image[P], points []InterestPoint, castIfUnsupported bool) error {
	mem, err := timage.Materialize(img)
	if err != nil {
		return err
	}
	return det.Extract(mem.Buffer(), points, castIfUnsupported)
}

// PrepareBuffer coerces input into the working format a detector requires.
// The input passes through untouched when it already matches; otherwise a
// scratch buffer is allocated and the data converted with rescale. When the
// channel kind differs and castIfUnsupported is false the call fails;
// pixel-format conversion is always performed when the channel count
// differs.
func PrepareBuffer(input timage.ImageBuffer, castIfUnsupported bool,
	pixelType timage.PixelFormat, kind timage.ChannelType, detectorName string) (timage.ImageBuffer, error) {

	if !castIfUnsupported && input.Format.ChannelKind != kind {
		return timage.ImageBuffer{}, fmt.Errorf(
			"%w: %s supports only %v imagery and casting is disabled (input is %v)",
			timage.ErrInvalidChannelType, detectorName, kind, input.Format.ChannelKind)
	}
	channels, err := input.Format.Channels()
	if err != nil {
		return timage.ImageBuffer{}, err
	}

	targetChannels, err := pixelType.StorageChannels()
	if err != nil {
		return timage.ImageBuffer{}, err
	}

	newFormat := input.Format
	cast := false
	if channels != targetChannels {
		newFormat.PixelType = pixelType
		cast = true
	}
	if input.Format.ChannelKind != kind {
		newFormat.ChannelKind = kind
		cast = true
	}
	if !cast {
		return input, nil
	}

	out := timage.AllocateBuffer(newFormat)
	if err := timage.Convert(out, input, true); err != nil {
		return timage.ImageBuffer{}, fmt.Errorf("%w: preparing buffer for %s: %v",
			timage.ErrConversion, detectorName, err)
	}
	return out, nil
}
