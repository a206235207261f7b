// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated data from the handler, performs
// business operations, and calls the store and the outbound
// clients (geocoding, email) in a fixed order.
package service
