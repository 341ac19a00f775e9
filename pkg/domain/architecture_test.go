package domain

import (
	"communityconnect/testutil"
	"testing"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "entities must not depend on storage or service code")
}
