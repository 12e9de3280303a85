package analysis

import (
	"regexp"
	"strings"
)

// SecurityRule is one entry of the risky-pattern catalog
type SecurityRule struct {
	Pattern *regexp.Regexp
	Message string
}

// SecurityRules is the ordered catalog applied to every source line.
// Matching is lexical, so text inside comments and strings matches too.
var SecurityRules = []SecurityRule{
	{regexp.MustCompile(`(?i)eval\s*\(`), "Use of eval() can be dangerous"},
	{regexp.MustCompile(`(?i)exec\s*\(`), "Use of exec() can be dangerous"},
	{regexp.MustCompile(`(?i)subprocess\.call\s*\([^)]*shell\s*=\s*True`), "Shell=True in subprocess can be risky"},
	{regexp.MustCompile(`(?i)pickle\.loads?\s*\(`), "Pickle deserialization can be unsafe"},
	{regexp.MustCompile(`(?i)yaml\.load\s*\([^)]*Loader\s*=\s*yaml\.Loader`), "YAML unsafe loading"},
	{regexp.MustCompile(`(?i)request\.args\.get\([^)]*\)`), "Direct use of request parameters without validation"},
	{regexp.MustCompile(`(?i)sql.*%.*%`), "Possible SQL injection vulnerability"},
	{regexp.MustCompile(`(?i)os\.system\s*\(`), "Use of os.system() can be dangerous"},
}

// ScanSecurity matches every line against SecurityRules. Each matching
// rule yields its own issue, so one line can produce several.
func ScanSecurity(content string) []Issue {
	var issues []Issue
	for i, line := range strings.Split(content, "\n") {
		for _, rule := range SecurityRules {
			if rule.Pattern.MatchString(line) {
				issues = append(issues, newSecurityIssue(i+1, rule.Message, strings.TrimSpace(line)))
			}
		}
	}
	return issues
}
