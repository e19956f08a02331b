// Package pebblestore wraps a Pebble database with the fsync policy and the
// small helper surface (Get/Set/Delete/batch/iterator) used by the embedded
// record store and work queue.
package pebblestore
