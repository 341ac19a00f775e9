package core

import (
	"communityconnect/testutil"
	"testing"
)

func TestServiceDoesNotDependOnTransports(t *testing.T) {
	if testing.Short() {
		t.Skip("shells out to go list")
	}
	testutil.AssertNoTransitiveDependency(t, ".",
		testutil.Under(testutil.ModulePath+"/internal/adapters", testutil.ModulePath+"/cmd", testutil.ModulePath+"/internal/config"),
		"the service is reached through adapters, never the reverse")
}
