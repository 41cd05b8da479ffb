// Package mongo wraps the official MongoDB driver with retrying connect
// logic, environment-driven configuration and a healthcheck probe.
package mongo
