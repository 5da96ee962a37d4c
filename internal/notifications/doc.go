// Package notifications delivers download-ready email to requestors and
// pipeline alerts to operators.
//
// Email is composed with go-message and sent over SMTP at the rate configured
// in notifications.rate_per_minute. Operator alerts publish to ntfy when a
// topic is configured. When neither transport is configured NewService returns
// a no-op implementation so the pipeline keeps running unchanged.
package notifications
