// Package testsupport provides shared helpers for package tests:
// temp-directory configs, job store setup, and seeded job records.
package testsupport
