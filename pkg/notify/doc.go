// Package notify delivers best-effort notifications about sharing activity.
//
// The sharing engine emits Intent values into an Outbox; a Worker drains the
// outbox out-of-band and renders each intent into a message for a Notifier
// (Postmark for production email, DevNotifier for local development).
// Nothing on this path ever propagates an error back to the operation that
// produced the intent: enqueue failures are reported to the producer to log,
// delivery failures are logged by the worker and dropped.
//
// Two outbox backends are provided: MemoryOutbox (bounded channel, drops
// when full) and RedisOutbox (redis list, survives process restarts and
// allows a separate delivery process).
package notify
