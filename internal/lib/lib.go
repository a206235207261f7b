// Package lib holds the modules that do not fit strictly into the
// request layers: the email client and its transports, the destination
// geocoder, the Prometheus collectors, background jobs (Redis/Asynq)
// and small shared utilities.
package lib
