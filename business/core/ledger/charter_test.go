package ledger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/fundme/business/core/ledger"
)

func writeCharter(t *testing.T, doc string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "charter.json")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("\t%s\tShould be able to write charter file: %v", failed, err)
	}
	return path
}

func TestLoadCharter(t *testing.T) {
	t.Log("Given the need to load the ledger charter from disk.")
	{
		t.Log("\tTest 0:\tWhen the charter is complete.")
		{
			path := writeCharter(t, `{
				"owner_id": "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32",
				"minimum_usd": 5000000000,
				"funder_policy": "every"
			}`)

			charter, err := ledger.LoadCharter(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load the charter: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to load the charter.", success)

			if charter.MinimumUSD != 5000000000 {
				t.Errorf("\t%s\tTest 0:\tShould have the configured minimum, got %d.", failed, charter.MinimumUSD)
			} else {
				t.Logf("\t%s\tTest 0:\tShould have the configured minimum.", success)
			}

			if charter.FunderPolicy != ledger.FundersEvery {
				t.Errorf("\t%s\tTest 0:\tShould have the configured funder policy, got %q.", failed, charter.FunderPolicy)
			} else {
				t.Logf("\t%s\tTest 0:\tShould have the configured funder policy.", success)
			}
		}

		t.Log("\tTest 1:\tWhen the funder policy is omitted.")
		{
			path := writeCharter(t, `{
				"owner_id": "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32",
				"minimum_usd": 100
			}`)

			charter, err := ledger.LoadCharter(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to load the charter: %v", failed, err)
			}

			if charter.FunderPolicy != ledger.FundersUnique {
				t.Errorf("\t%s\tTest 1:\tShould default to the unique policy, got %q.", failed, charter.FunderPolicy)
			} else {
				t.Logf("\t%s\tTest 1:\tShould default to the unique policy.", success)
			}
		}

		t.Log("\tTest 2:\tWhen the charter is invalid.")
		{
			badOwner := writeCharter(t, `{"owner_id": "not-an-account", "minimum_usd": 100}`)
			if _, err := ledger.LoadCharter(badOwner); err == nil {
				t.Errorf("\t%s\tTest 2:\tShould reject an invalid owner account.", failed)
			} else {
				t.Logf("\t%s\tTest 2:\tShould reject an invalid owner account.", success)
			}

			badPolicy := writeCharter(t, `{
				"owner_id": "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32",
				"minimum_usd": 100,
				"funder_policy": "sometimes"
			}`)
			if _, err := ledger.LoadCharter(badPolicy); err == nil {
				t.Errorf("\t%s\tTest 2:\tShould reject an unknown funder policy.", failed)
			} else {
				t.Logf("\t%s\tTest 2:\tShould reject an unknown funder policy.", success)
			}
		}
	}
}
