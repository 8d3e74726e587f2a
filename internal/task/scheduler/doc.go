// Package scheduler runs named background jobs on fixed intervals or cron
// expressions (robfig/cron).
//
// Both periodic loops of the bot are registered here: the dispatch tick and
// the directory refresh. A job never overlaps with itself; a trigger that
// fires while the previous run is still going is skipped and counted.
//
// Stop halts triggering, cancels the context handed to running jobs and
// waits for them to return, so a job can finish its current unit of work.
package scheduler
