// Package api provides the gateway's HTTP surface: the workflow start and
// poll endpoints plus health, readiness and metrics.
package api
