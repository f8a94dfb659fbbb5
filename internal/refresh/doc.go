// Package refresh periodically re-queries sender stats and thread listings.
//
// The Scheduler is owned by the host process. It drives the same
// operations a user would trigger, on a robfig/cron "@every" schedule,
// and keeps the latest stats snapshot of every watched sender.
package refresh
