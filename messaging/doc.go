// Package messaging converts payloads to broker messages and hands them to a
// kafka writer. Components is the configuration unit: it builds the
// converter and the sender once and shares them.
package messaging
