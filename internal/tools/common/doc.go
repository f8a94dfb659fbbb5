// Package common provides helpers shared by the senderwatch MCP tools:
// argument parsing, result rendering and the instrumentation wrapper that
// records metrics, spans and audit logs for every tool call.
package common
