// Package domain models geolocated sensor measurements and the entities of an
// Inverse Distance Weighting (IDW) interpolation request.
//
// # Measurements
//
// A measurement is one scalar value reported by one sensor of a device ("box")
// for one phenomenon (e.g. "Temperatur", "PM10") at a WGS-84 location. The
// interpolation engine only sees the projection [MeasurementPoint]
// (sensor id, value, lat, lng); phenomenon, exposure and time filters are
// applied by the measurement store before the stream reaches the engine.
//
// Ingested payloads are flat JSON objects:
//
//	{"sensorId":"5a8d...","phenomenon":"Temperatur","exposure":"outdoor",
//	 "value":12.4,"lat":51.96,"lng":7.62,"createdAt":"2024-04-26T15:10:00Z"}
//
// A missing createdAt is stamped with the current time.
//
// # Known Points
//
// Points sharing the exact same (lat, lng) pair are collapsed into one
// [KnownPoint] whose value is the arithmetic mean of the group. Coordinates
// are compared with float equality; no snapping or rounding is applied.
//
// # Grids
//
// A [Region] is the caller's bounding box expanded into a closed ring. It is
// tessellated into hexagonal, square or triangular [GridCell]s whose width is
// given in kilometers or miles. Hexagon width is the circumradius (side
// length); square and triangle width is the side of the enclosing square.
//
// # Output
//
// Each cell with a defined estimate becomes an [InterpolatedFeature] carrying
// the estimated value and an equal-interval class index. The response document
// is a GeoJSON FeatureCollection extended with a top-level "breaks" array.
//
// # Errors
//
// Callers classify failures with [Outcome]: bad input, cost rejection or an
// opaque computation failure. See errors.go.
package domain
