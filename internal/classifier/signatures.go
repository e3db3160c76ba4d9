package classifier

// signature is one static threat heuristic. A signature matches an event
// when its rule patterns match the firewall rule name or its URI patterns
// match the request path. Specificity ranks overlapping matches so
// classification stays total and deterministic regardless of table order.
type signature struct {
	name        string
	threatType  string
	severity    string
	specificity int
	// substring patterns, matched case-insensitively
	rulePatterns []string
	uriPatterns  []string
}

// signatures is the static table. Rule-name patterns cover the managed rule
// group identifiers emitted by the firewall; URI patterns catch count-mode
// and unlabelled variants of the same attacks.
var signatures = []signature{
	{
		name:         "sql-injection",
		threatType:   "sqli",
		severity:     "high",
		specificity:  30,
		rulePatterns: []string{"sqli", "sql_injection", "sqlinjection", "sqldatabase"},
		uriPatterns:  []string{"union select", "union%20select", "' or 1=1", "%27 or", "information_schema"},
	},
	{
		name:         "cross-site-scripting",
		threatType:   "xss",
		severity:     "high",
		specificity:  30,
		rulePatterns: []string{"xss", "crosssitescripting"},
		uriPatterns:  []string{"<script", "%3cscript", "javascript:", "onerror="},
	},
	{
		name:         "path-traversal",
		threatType:   "path_traversal",
		severity:     "high",
		specificity:  25,
		rulePatterns: []string{"pathtraversal", "lfi_", "genericlfi", "genericrfi"},
		uriPatterns:  []string{"../", "..%2f", "..%5c", "/etc/passwd", "boot.ini"},
	},
	{
		name:         "admin-probe",
		threatType:   "recon",
		severity:     "medium",
		specificity:  20,
		rulePatterns: []string{"adminprotection"},
		uriPatterns:  []string{"/wp-admin", "/wp-login", "/.env", "/phpmyadmin", "/.git/"},
	},
	{
		name:         "bad-bot",
		threatType:   "bot",
		severity:     "medium",
		specificity:  15,
		rulePatterns: []string{"botcontrol", "badbot", "scannersandprobes", "ipreputation", "anonymousiplist"},
	},
	{
		name:         "rate-abuse",
		threatType:   "rate_abuse",
		severity:     "medium",
		specificity:  10,
		rulePatterns: []string{"ratelimit", "rate-based", "ratebased"},
	},
}
