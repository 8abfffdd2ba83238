// Package reminder implements the in-memory one-shot timer scheduler that
// fires event reminders.
//
// Timers are kept in a min-heap ordered by fire instant. A driver calls Tick,
// which pops every due timer, marks it fired under the scheduler lock and runs
// its callback on a fresh goroutine, so each timer fires at most once and the
// caller that armed it never blocks. In production the driver is a cron entry
// started with Start; tests call Tick directly after advancing a manual clock.
//
// Nothing is persisted: pending timers die with the process.
package reminder
