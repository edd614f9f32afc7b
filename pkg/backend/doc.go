// Package backend defines the data model and the collaborator contracts the
// client core talks to, plus Mock, an in-memory implementation with
// artificial latency and fault injection.
//
// Contracts are split by feature (Likes, Follows, Comments, ...) so each
// controller depends only on what it calls. Backend bundles all of them.
package backend
