// Package coordinator runs batches of chat export jobs through the
// unpack, enrich and finalize stages.
//
// Each job gets its own workspace and its failures never touch sibling jobs;
// the worker pool caps how many jobs run at once while the rest of the batch
// queues in submission order. Batches are observable at any time through
// snapshots and support bounded waits and cancellation.
package coordinator
