package rules

import (
	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/pkg/shared/errors"
)

// DefaultRules returns the built-in rule set seeded at process start.
func DefaultRules() []CreateInput {
	builtIn := false
	return []CreateInput{
		{
			ID:             "SEC001",
			Name:           "Hardcoded Secrets",
			Description:    "Detects hardcoded API keys, passwords, and tokens in source code",
			Pattern:        `(api[_-]?key|secret|token|password)[_-]?\s*[:=]\s*["'][^"'\s]{8,}["']`,
			Severity:       SeverityHigh,
			Category:       "Security",
			Language:       "JavaScript",
			FileExtensions: []string{".js", ".ts", ".jsx", ".tsx", ".json"},
			FixSuggestion:  "Move secrets to environment variables or secure configuration files",
			Custom:         &builtIn,
		},
		{
			ID:             "SEC002",
			Name:           "SQL Injection",
			Description:    "Detects potential SQL injection vulnerabilities in database queries",
			Pattern:        `(query|execute)\s*\(\s*["'][^"']*\$\{[^}]+\}[^"']*["']`,
			Severity:       SeverityHigh,
			Category:       "Security",
			Language:       "JavaScript",
			FileExtensions: []string{".js", ".ts"},
			FixSuggestion:  "Use parameterized queries or prepared statements instead of string concatenation",
			Custom:         &builtIn,
		},
		{
			ID:             "SEC003",
			Name:           "Weak Cryptography",
			Description:    "Detects usage of weak or deprecated cryptographic algorithms",
			Pattern:        `(md5|sha1|des|rc4|createCipher)\s*\(`,
			Severity:       SeverityMedium,
			Category:       "Security",
			Language:       "JavaScript",
			FileExtensions: []string{".js", ".ts"},
			FixSuggestion:  "Use strong cryptographic algorithms like AES-256, SHA-256, or bcrypt",
			Custom:         &builtIn,
		},
		{
			ID:             "SEC004",
			Name:           "Insecure Random",
			Description:    "Detects usage of weak random number generation",
			Pattern:        `Math\.random\(\)`,
			Severity:       SeverityMedium,
			Category:       "Security",
			Language:       "JavaScript",
			FileExtensions: []string{".js", ".ts"},
			FixSuggestion:  "Use crypto.randomBytes() or crypto.getRandomValues() for cryptographically secure random numbers",
			Custom:         &builtIn,
		},
		{
			ID:             "SEC005",
			Name:           "XSS Vulnerability",
			Description:    "Detects potential Cross-Site Scripting (XSS) vulnerabilities",
			Pattern:        `(innerHTML|outerHTML|document\.write)\s*[+=]\s*[^;]+\+[^;]*\)`,
			Severity:       SeverityHigh,
			Category:       "Security",
			Language:       "JavaScript",
			FileExtensions: []string{".js", ".ts", ".jsx", ".tsx"},
			FixSuggestion:  "Use textContent instead of innerHTML, or properly sanitize user input",
			Custom:         &builtIn,
		},
		{
			ID:   "SEC006",
			Name: "Insecure HTTP",
			// Requires a dotted hostname so loopback references like
			// localhost and 127.0.0.1 are not flagged.
			Pattern:        `http://(?:[a-z0-9-]+\.)+[a-z]{2,}`,
			Description:    "Detects usage of insecure HTTP URLs instead of HTTPS",
			Severity:       SeverityMedium,
			Category:       "Security",
			FileExtensions: []string{".js", ".ts", ".json", ".config"},
			FixSuggestion:  "Use HTTPS instead of HTTP for external communications",
			Custom:         &builtIn,
		},
		{
			ID:             "SEC007",
			Name:           "Debug Information",
			Description:    "Detects debug information that should not be in production",
			Pattern:        `(console\.(log|debug|info|warn|error)|debugger;|TODO|FIXME)`,
			Severity:       SeverityLow,
			Category:       "Code Quality",
			Language:       "JavaScript",
			FileExtensions: []string{".js", ".ts", ".jsx", ".tsx"},
			FixSuggestion:  "Remove debug statements and TODO comments before production deployment",
			Custom:         &builtIn,
		},
		{
			ID:             "SEC008",
			Name:           "Insecure CORS",
			Description:    "Detects overly permissive CORS configuration",
			Pattern:        `origin\s*:\s*["']\*["']`,
			Severity:       SeverityMedium,
			Category:       "Security",
			Language:       "JavaScript",
			FileExtensions: []string{".js", ".ts"},
			FixSuggestion:  "Specify allowed origins explicitly instead of using wildcard",
			Custom:         &builtIn,
		},
		{
			ID:             "SEC009",
			Name:           "Eval Usage",
			Description:    "Detects dangerous usage of eval() function",
			Pattern:        `eval\s*\(`,
			Severity:       SeverityHigh,
			Category:       "Security",
			Language:       "JavaScript",
			FileExtensions: []string{".js", ".ts"},
			FixSuggestion:  "Avoid using eval(). Use safer alternatives like JSON.parse() for data parsing",
			Custom:         &builtIn,
		},
		{
			ID:             "SEC010",
			Name:           "Vulnerable Dependencies",
			Description:    "Detects potentially vulnerable package versions",
			Pattern:        `("express"\s*:\s*"4\.[0-9]\.|"lodash"\s*:\s*"4\.17\.[0-9]")`,
			Severity:       SeverityMedium,
			Category:       "Dependencies",
			FileExtensions: []string{"package.json"},
			FixSuggestion:  "Update dependencies to their latest secure versions",
			Custom:         &builtIn,
		},
	}
}

// SeedDefaults inserts the built-in rules into the store. Rules that already
// exist are left untouched.
func SeedDefaults(store Store, logger hclog.Logger) error {
	for _, input := range DefaultRules() {
		if _, err := store.Create(input); err != nil {
			if errors.IsConflict(err) {
				logger.Debug("built-in rule already present", "rule", input.ID)
				continue
			}
			return err
		}
		logger.Debug("seeded built-in rule", "rule", input.ID)
	}
	return nil
}
