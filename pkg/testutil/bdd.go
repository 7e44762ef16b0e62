// Package testutil holds small helpers shared by the package test suites.
package testutil

import "testing"

// Given, When, Then, and And name the stages of a scenario as subtests, so
// lifecycle tests read as a narrative in verbose output without pulling in a
// BDD framework. Stages run in order and share the enclosing test's state.

func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}

func And(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("And "+desc, fn)
}
