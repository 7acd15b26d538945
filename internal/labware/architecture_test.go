package labware_test

import (
	"testing"

	"deckhistory/testutil"
)

func TestQueryPackageStaysInMemory(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(testutil.InfraImportForbidden, testutil.ThirdPartyImportForbidden),
		"labware resolves over in-memory command histories")
}
