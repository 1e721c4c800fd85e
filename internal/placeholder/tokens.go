package placeholder

import (
	"fmt"
	"regexp"
)

// Fixed template tokens.
const (
	TokenAddress         = "[ADDRESS]"
	TokenTransactionID   = "[TRANSACTION_ID]"
	TokenCurrentRent     = "[CURRENT_RENT]"
	TokenNewRent         = "[NEW_RENT]"
	TokenServiceFee      = "[SERVICE_FEE]"
	TokenApplicationDate = "[APPLICATION_DATE]"
	TokenEndDate         = "[END_DATE]"
	TokenTodaysDate      = "[TODAYS_DATE]"
	TokenFreeText        = "[FREE_TEXT]"
	TokenFreeTextEN      = "[FREE_TEXT_EN]"
	TokenWhenSE          = "[WHEN_SE]"
	TokenWhenEN          = "[WHEN_EN]"
	TokenLandlordName    = "[LANDLORD_NAME]"
	TokenTenantName      = "[TENANT_NAME]"
)

// MaxSignees is the number of [SIGNEE_k] tokens a template may carry.
// Parties beyond it are dropped from the notice.
const MaxSignees = 20

// FixedTokens lists every token that always resolves to a value.
var FixedTokens = []string{
	TokenAddress,
	TokenTransactionID,
	TokenCurrentRent,
	TokenNewRent,
	TokenServiceFee,
	TokenApplicationDate,
	TokenEndDate,
	TokenTodaysDate,
	TokenFreeText,
	TokenFreeTextEN,
	TokenWhenSE,
	TokenWhenEN,
	TokenLandlordName,
	TokenTenantName,
}

// SigneeTokenPattern matches any party token, assigned or not.
var SigneeTokenPattern = regexp.MustCompile(`\[SIGNEE_\d+\]`)

// SigneeToken returns the token of the k-th party (1-based).
func SigneeToken(k int) string {
	return fmt.Sprintf("[SIGNEE_%d]", k)
}

// Duration clauses.
const (
	untilFurtherNoticeSE = "tillsvidare"
	untilFurtherNoticeEN = "until further notice"
	throughSE            = "till och med %s, därefter återgår hyran till tidigare belopp"
	throughEN            = "through %s, after which the rent reverts to the previous amount"
)

// Party lines. The landlord's contact details are always redacted.
const (
	landlordLine = "(1) Hyresvärd / Landlord: %s, tel: ***-*** ** **, e-post: ***@***"
	tenantLine   = "(%d) Hyresgäst / Tenant: %s"
)
