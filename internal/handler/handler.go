// Package handler is the first layer after the router.
//
// It decodes the inquiry payload, runs validation through the
// validation package and calls the service layer. Errors are handed
// back to echo untouched; the global error handler shapes the response.
package handler
