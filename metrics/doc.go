// Package metrics defines Prometheus metrics for authkit, covering message
// delivery, mailbox retrieval, image uploads and user lock transitions.
package metrics
