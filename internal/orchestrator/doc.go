// Package orchestrator is the composition root of senderwatch.
//
// Orchestrator holds no state of its own. It delegates to the filter
// lifecycle manager, the stats aggregator and the thread state coordinator,
// and emits one notification for every terminal outcome of a filter
// create/delete or a thread mutation.
package orchestrator
