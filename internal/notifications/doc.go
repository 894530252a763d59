// Package notifications delivers import and submission alerts via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. Category toggles
// let operators silence import, submission, or error pushes independently.
//
// Extend this package if you need alternative transports; callers depend only
// on the Service interface.
package notifications
