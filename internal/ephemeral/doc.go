// Package ephemeral owns the upload and output holding areas.
//
// Every generated artifact gets one fixed-delay deletion armed when it is
// registered. Downloads resolve through Lookup, which reports an artifact as
// expired once its deadline passes, whether or not its timer has run yet.
// A daily Scheduler empties both areas regardless of individual timers.
//
// All deletions are delete-if-exists and are never retried.
package ephemeral
