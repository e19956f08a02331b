// Package httpserver exposes the JSON API over HTTP: document submission,
// record listing, live streaming over SSE, and health/documentation
// endpoints.
package httpserver
