// Package apperrors defines the typed errors surfaced by the senderwatch core.
//
// Every error is terminal to the operation that raised it. Local caches are either
// fully committed or fully rolled back before one of these errors is returned, and
// the provider's original message stays reachable through Unwrap.
package apperrors
