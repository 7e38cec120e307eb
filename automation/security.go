package automation

import (
	"regexp"
	"strings"
)

/************************************************
/**** MARK: RISK LEVELS ****/
/************************************************/
const RISK_LOW = "low"
const RISK_HIGH = "high"
const RISK_CRITICAL = "critical"

// Verdict is the result of classifying a destination number.
type Verdict struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	RiskLevel string `json:"riskLevel"`
}

type numberPattern struct {
	re     *regexp.Regexp
	reason string
}

// The pattern layers are policy data, not logic: edit the tables, not the
// validator. Order matters only for the reported reason; any match rejects.
var primaryPremiumPatterns = []numberPattern{
	{regexp.MustCompile(`^0900\d+$`), "premium service prefix 0900"},
	{regexp.MustCompile(`^0190\d+$`), "legacy premium prefix 0190"},
	{regexp.MustCompile(`^49900\d+$`), "premium prefix with country code 49-900"},
	{regexp.MustCompile(`^49190\d+$`), "premium prefix with country code 49-190"},
	{regexp.MustCompile(`^1[89]00\d{7,}$`), "premium combination 1-800/1-900"},
	{regexp.MustCompile(`^118\d{1,2}$`), "directory assistance short code"},
}

var extendedPremiumPatterns = []numberPattern{
	{regexp.MustCompile(`^013[78]\d+$`), "televoting prefix 0137/0138"},
	{regexp.MustCompile(`^49137\d+$`), "televoting prefix with country code"},
	{regexp.MustCompile(`^0180\d+$`), "shared-cost prefix 0180"},
	{regexp.MustCompile(`^49180\d+$`), "shared-cost prefix with country code"},
	{regexp.MustCompile(`^449\d{8,}$`), "premium combination 44-9"},
	{regexp.MustCompile(`^4487\d{7,}$`), "premium combination 44-87"},
}

var controlChars = regexp.MustCompile(`[*#]`)

// Validate classifies a destination before anything else may touch it. It is
// a hard gate: every send path, including manual test triggers, goes through
// it first. Pure function, no I/O.
func Validate(phoneNumber string) Verdict {
	sanitized := sanitizeNumber(phoneNumber)

	for _, p := range primaryPremiumPatterns {
		if p.re.MatchString(sanitized) {
			return Verdict{Allowed: false, Reason: p.reason, RiskLevel: RISK_CRITICAL}
		}
	}
	for _, p := range extendedPremiumPatterns {
		if p.re.MatchString(sanitized) {
			return Verdict{Allowed: false, Reason: p.reason, RiskLevel: RISK_CRITICAL}
		}
	}

	if controlChars.MatchString(sanitized) {
		return Verdict{Allowed: false, Reason: "number contains control characters", RiskLevel: RISK_HIGH}
	}
	digits := len(sanitized) // control chars already rejected, only digits left
	if digits <= 4 {
		return Verdict{Allowed: false, Reason: "implausibly short number", RiskLevel: RISK_HIGH}
	}
	if digits >= 15 {
		return Verdict{Allowed: false, Reason: "implausibly long number", RiskLevel: RISK_HIGH}
	}

	return Verdict{Allowed: true, RiskLevel: RISK_LOW}
}

// sanitizeNumber keeps digits plus the control characters the suspicious
// layer inspects; '+' and formatting are dropped.
func sanitizeNumber(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '*' || r == '#' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
