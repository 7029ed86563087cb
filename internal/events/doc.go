// Package events implements the typed lifecycle notifications of an import
// run. The orchestrator publishes SetUp, TearDown and the transaction events
// on a Bus; listeners such as the run history recorder and the ntfy notifier
// subscribe to the events they care about.
package events
