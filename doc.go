// Package timage is a lazy, tiled, parallel image-view engine aimed at
// geospatial and remote-sensing imagery.
//
// Images are composed as trees of lazy views whose leaves are in-memory
// rasters or disk resources. Materialization is demand-driven: a call to
// Rasterize on the top of a view tree subdivides the requested region into
// blocks, schedules them across a worker pool, and serves repeated requests
// from a byte-budget tile cache.
//
// The root package holds the pixel/channel type system, buffer conversion,
// and the view algebra. Supporting packages:
//
//   - block:   parallel block rasterization and the block-rasterize view
//   - cache:   the process-wide LRU tile cache with pinned handles
//   - imgio:   disk resources, driver registration, and read/write helpers
//   - feature: interest-point detection over tiled views
//
// By default timage produces no log output. Call [SetLogger] to enable
// logging through log/slog.
package timage
