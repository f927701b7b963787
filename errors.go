package timage

import "errors"

// Errors shared across the engine. Operations wrap these with context
// (path, bbox, pixel and channel types) using fmt.Errorf and %w, so callers
// can test categories with errors.Is.
var (
	// ErrInvalidConfig is returned for inconsistent sizes, strides, or
	// parameters at call boundaries.
	ErrInvalidConfig = errors.New("timage: invalid configuration")

	// ErrInvalidPixelFormat is returned when a pixel-format combination is
	// not supported by a conversion or resource.
	ErrInvalidPixelFormat = errors.New("timage: invalid pixel format")

	// ErrInvalidChannelType is returned when no conversion is registered for
	// a channel-type pair, or a channel type cannot be stored.
	ErrInvalidChannelType = errors.New("timage: invalid channel type")

	// ErrBounds is returned when a bounding box is not inside the image.
	ErrBounds = errors.New("timage: out of bounds")

	// ErrOutOfMemory is returned when an allocation inside SetSize fails or
	// exceeds the allocation caps.
	ErrOutOfMemory = errors.New("timage: out of memory")

	// ErrFileIO is returned for I/O failures at a driver.
	ErrFileIO = errors.New("timage: file i/o error")

	// ErrDriverNotFound is returned when no registered factory matches a
	// path or detector configuration.
	ErrDriverNotFound = errors.New("timage: driver not found")

	// ErrParsing is returned for malformed configuration data.
	ErrParsing = errors.New("timage: parsing error")

	// ErrNotImplemented is returned when an optional interface is not
	// provided by a driver.
	ErrNotImplemented = errors.New("timage: not implemented")

	// ErrUninitialized is returned on use of a resource before setup.
	ErrUninitialized = errors.New("timage: uninitialized")

	// ErrConversion is returned when a channel or pixel conversion fails
	// inside a larger operation.
	ErrConversion = errors.New("timage: conversion error")

	// ErrAborted is returned when a progress reporter requests cancellation.
	ErrAborted = errors.New("timage: aborted")
)
