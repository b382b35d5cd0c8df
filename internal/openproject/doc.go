// Package openproject is a client for the OpenProject REST API v3.
//
// Responses arrive in HAL form: relationship fields live under _links as
// {href, title} pairs and rich text arrives as a {format, raw, html} object.
// The client decodes each response into a wire struct and normalizes it
// right away, so callers only ever see flat values with Ref relationships
// and plain-text descriptions.
//
// Work package writes follow the optimistic locking protocol of the API:
// every mutating request is preceded by a fresh read of the lockVersion,
// and a stale version surfaces as ErrConflict. The client never retries.
//
// A Client holds no mutable state after construction and is safe for
// concurrent use.
package openproject
