// Package domain contains the core business entities, value objects, and
// domain logic of the booking platform: availability blocks, booked sessions,
// match candidates, and outbox tasks. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
