// Package influxdb records check-location reports as time-series points.
//
// Each report becomes one location_reports point tagged with the username
// and the inside/outside outcome. The stored data is never consulted by
// request handling; it exists for after-the-fact review of where devices
// reported from.
//
// Writes are non-blocking and batched per the batch_size and
// flush_interval settings. Asynchronous write failures are delivered to
// the SetOnError callback.
package influxdb
