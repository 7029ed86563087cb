// Package module defines the processing steps of an import.
//
// A Registry maps the type names used in [[modules]] config entries to
// factories; Build turns the configured list into ordered Instances and Run
// executes one of them with start/completion logging. Two types are built in:
// "sql" executes configured statements on the run's connection and
// "finish-when-empty" ends the run early when a count query returns zero.
package module
