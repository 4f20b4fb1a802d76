package wiring_test

import (
	"testing"

	"github.com/grindlemire/graft"
)

// TestGraftDependencies checks that every node declaring a dependency uses it and every
// used dependency is declared.
func TestGraftDependencies(t *testing.T) {
	// AssertDepsValid infers a dependency ID from the package of the type passed to Dep[T].
	// ports.Logger, ports.Loader and ports.ConfigLoader all resolve to "ports", which does not
	// match the adapter node IDs.
	t.Skip("graft static analysis cannot tell apart nodes that provide types from the shared ports package")
	graft.AssertDepsValid(t, "../../internal")
}
