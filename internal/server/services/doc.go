// Package services contains the server-side business logic: resolving and
// issuing sessions, and the password reset flow.
package services
