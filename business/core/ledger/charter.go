package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FunderPolicy determines how the ordered funder list records repeat
// contributors.
type FunderPolicy string

// Set of supported funder list policies. Unique records an account only on
// its first ever contribution. Every records an account once per accepted
// contribution, which is what the original contract did.
const (
	FundersUnique FunderPolicy = "unique"
	FundersEvery  FunderPolicy = "every"
)

// Charter represents the charter file. It captures the values that are fixed
// for the lifetime of the ledger: the one account allowed to withdraw and
// the minimum USD value a contribution must clear.
type Charter struct {
	Date         time.Time    `json:"date"`
	OwnerID      AccountID    `json:"owner_id"`      // The one account authorized to withdraw held funds.
	MinimumUSD   uint64       `json:"minimum_usd"`   // Minimum USD value of a contribution, 8 decimal places.
	FunderPolicy FunderPolicy `json:"funder_policy"` // How repeat contributors are recorded in the funder list.
}

// =============================================================================

// LoadCharter opens and consumes the charter file.
func LoadCharter(path string) (Charter, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Charter{}, err
	}

	var charter Charter
	if err := json.Unmarshal(content, &charter); err != nil {
		return Charter{}, err
	}

	if !charter.OwnerID.IsAccountID() {
		return Charter{}, fmt.Errorf("charter owner %q is not a valid account", charter.OwnerID)
	}

	switch charter.FunderPolicy {
	case FundersUnique, FundersEvery:
	case "":
		charter.FunderPolicy = FundersUnique
	default:
		return Charter{}, fmt.Errorf("unknown funder policy %q", charter.FunderPolicy)
	}

	return charter, nil
}
