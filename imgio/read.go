package imgio

import (
	"fmt"
	"log/slog"

	"github.com/terminus-geospatial/timage"
)

// ReadImage opens path through the driver registry and materializes the
// whole image as a MemoryImage of pixel type P. The resource's native
// format is converted to P's format by the driver, rescaling channel ranges
// according to the process default.
//
// Pass nil to use the default driver manager.
func ReadImage[P any](path string, mgr *DriverManager) (*timage.MemoryImage[P], error) {
	if mgr == nil {
		mgr = DefaultManager()
	}
	timage.Logger().Info("loading image", slog.String("path", path))
	res, err := mgr.PickReadDriver(path)
	if err != nil {
		return nil, err
	}
	return ReadImageFromResource[P](res, FullBBox(res))
}

// ReadImageRegion reads only the region bbox of the image at path.
func ReadImageRegion[P any](path string, bbox timage.Rect, mgr *DriverManager) (*timage.MemoryImage[P], error) {
	if mgr == nil {
		mgr = DefaultManager()
	}
	res, err := mgr.PickReadDriver(path)
	if err != nil {
		return nil, err
	}
	return ReadImageFromResource[P](res, bbox)
}

// ReadImageFromResource reads the region bbox of an open resource into a
// fresh MemoryImage of pixel type P.
//
// A single-channel pixel type accepts either a multi-plane or a
// multi-channel resource, mapping whichever is present onto planes; a
// resource that is both is rejected.
func ReadImageFromResource[P any](res ReadResource, bbox timage.Rect) (*timage.MemoryImage[P], error) {
	if !FullBBox(res).ContainsRect(bbox) {
		return nil, fmt.Errorf("%w: region %+v outside resource %v",
			timage.ErrBounds, bbox, res.Format())
	}

	out := &timage.MemoryImage[P]{}
	planes := 1
	resFormat := res.Format()
	resChannels, err := resFormat.Channels()
	if err != nil {
		return nil, err
	}
	pixChannels, err := out.Format().PixelType.StorageChannels()
	if err != nil {
		return nil, err
	}
	if pixChannels == 1 {
		if resFormat.Planes > 1 && resChannels > 1 {
			return nil, fmt.Errorf("%w: cannot read a multi-plane multi-channel resource into a single-channel view",
				timage.ErrInvalidConfig)
		}
		planes = max(resFormat.Planes, resChannels)
	} else {
		planes = resFormat.Planes
	}

	if err := out.SetSize(bbox.Width, bbox.Height, planes); err != nil {
		return nil, err
	}
	buf := out.Buffer()
	if pixChannels == 1 && resChannels > 1 {
		// Addressed as Scalar, the planes receive one resource channel each.
		buf.Format.PixelType = timage.FormatScalar
	}
	if err := res.Read(buf, bbox); err != nil {
		return nil, fmt.Errorf("reading %+v: %w", bbox, err)
	}
	return out, nil
}
