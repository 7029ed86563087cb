// Package notifications delivers import outcomes via ntfy.
//
// The default implementation publishes to the topic configured in
// [notifications] and degrades to a no-op when no topic is set. Attach wires
// the service to the lifecycle event bus so every finished run is reported
// without the orchestrator knowing about HTTP.
package notifications
