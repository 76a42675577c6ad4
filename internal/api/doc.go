// Package api defines the wire types shared by the daemon's HTTP
// surface and the operator CLI, plus the converters from persisted job
// records into client views.
package api
