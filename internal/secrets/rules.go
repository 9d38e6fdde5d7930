package secrets

// DefaultRules returns the rule set scrubbing runs with out of the box:
// cloud provider keys, VCS/SaaS tokens, LLM provider keys, and generic
// credential patterns that show up in conversations pasted from a
// terminal or an editor — a .env dump, an export line, a connection
// string typed into a chat.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, 32)
	rules = append(rules, cloudProviderRules()...)
	rules = append(rules, vcsAndSaaSTokenRules()...)
	rules = append(rules, llmProviderKeyRules()...)
	rules = append(rules, genericCredentialRules()...)
	return rules
}

// cloudProviderRules covers AWS, Google Cloud, and Azure credential shapes.
func cloudProviderRules() []Rule {
	return []Rule{
		{
			ID:          "aws-access-key-id",
			Description: "AWS Access Key ID",
			Pattern:     `(?i)(A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`,
			Keywords:    []string{"aws", "access", "key"},
			Severity:    "high",
		},
		{
			ID:          "aws-secret-access-key",
			Description: "AWS Secret Access Key",
			Pattern:     `(?i)(?:aws_secret_access_key|aws_secret_key|secret_access_key)\s*[:=]\s*['"]?([A-Za-z0-9/+=]{40})['"]?`,
			Keywords:    []string{"aws", "secret"},
			Severity:    "high",
		},
		{
			ID:          "google-api-key",
			Description: "Google API Key",
			Pattern:     `AIza[A-Za-z0-9_\-]{35}`,
			Keywords:    []string{"google"},
			Severity:    "high",
		},
		{
			ID:          "google-oauth-client-secret",
			Description: "Google OAuth Client Secret",
			Pattern:     `(?i)client_secret['":\s]+[A-Za-z0-9_\-]{24}`,
			Keywords:    []string{"google", "oauth"},
			Severity:    "high",
		},
		{
			ID:          "azure-storage-account-key",
			Description: "Azure Storage Account Key",
			Pattern:     `(?i)(?:account_?key|storage_?key)\s*[:=]\s*['"]?([A-Za-z0-9+/]{86}==)['"]?`,
			Keywords:    []string{"azure", "storage"},
			Severity:    "high",
		},
	}
}

// vcsAndSaaSTokenRules covers VCS hosting and SaaS platform tokens with
// a self-identifying prefix — these never need a keyword gate.
func vcsAndSaaSTokenRules() []Rule {
	return []Rule{
		{ID: "github-pat", Description: "GitHub Personal Access Token", Pattern: `ghp_[A-Za-z0-9]{36}`, Severity: "high"},
		{ID: "github-oauth-token", Description: "GitHub OAuth Access Token", Pattern: `gho_[A-Za-z0-9]{36}`, Severity: "high"},
		{ID: "github-app-token", Description: "GitHub App or Installation Token", Pattern: `(?:ghu|ghs)_[A-Za-z0-9]{36}`, Severity: "high"},
		{ID: "github-fine-grained-pat", Description: "GitHub Fine-grained Personal Access Token", Pattern: `github_pat_[A-Za-z0-9_]{22,}`, Severity: "high"},
		{ID: "gitlab-pat", Description: "GitLab Personal Access Token", Pattern: `glpat-[A-Za-z0-9\-]{20,}`, Severity: "high"},
		{ID: "slack-token", Description: "Slack Token", Pattern: `xox[baprs]-[A-Za-z0-9\-]{10,}`, Severity: "high"},
		{ID: "stripe-api-key", Description: "Stripe API Key", Pattern: `(?:sk|pk)_(?:live|test)_[A-Za-z0-9]{24,}`, Severity: "high"},
		{ID: "sendgrid-api-key", Description: "SendGrid API Key", Pattern: `SG\.[A-Za-z0-9_\-]{22,}\.[A-Za-z0-9_\-]{43,}`, Severity: "high"},
		{ID: "twilio-api-key", Description: "Twilio API Key", Pattern: `SK[A-Za-z0-9]{32}`, Keywords: []string{"twilio"}, Severity: "high"},
		{ID: "npm-access-token", Description: "npm Access Token", Pattern: `npm_[A-Za-z0-9]{36}`, Severity: "high"},
		{
			ID:          "heroku-api-key",
			Description: "Heroku API Key",
			Pattern:     `(?i)heroku[_-]?api[_-]?key\s*[:=]\s*[A-Fa-f0-9]{8}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{12}`,
			Keywords:    []string{"heroku"},
			Severity:    "high",
		},
	}
}

// llmProviderKeyRules covers the coding-assistant API keys most likely
// to appear pasted into a dex-indexed conversation in the first place.
func llmProviderKeyRules() []Rule {
	return []Rule{
		{
			ID:          "anthropic-api-key",
			Description: "Anthropic API Key",
			Pattern:     `sk-ant-[A-Za-z0-9_\-]{90,}`,
			Keywords:    []string{"anthropic", "claude"},
			Severity:    "high",
		},
		{
			ID:          "openai-api-key",
			Description: "OpenAI API Key",
			Pattern:     `sk-[A-Za-z0-9]{48,}`,
			Keywords:    []string{"openai"},
			Severity:    "high",
		},
	}
}

// genericCredentialRules covers keyword-gated generic patterns, plus
// the self-identifying ones (private keys, JWTs) that need no keyword.
func genericCredentialRules() []Rule {
	return []Rule{
		{
			ID:          "generic-api-key",
			Description: "Generic API Key",
			Pattern:     `(?i)(?:api[_-]?key|apikey)\s*[:=]\s*['"]?([A-Za-z0-9_\-]{16,64})['"]?`,
			Keywords:    []string{"api", "key"},
			Severity:    "high",
		},
		{
			ID:          "generic-secret",
			Description: "Generic Secret",
			Pattern:     `(?i)(?:secret|password|passwd|pwd)\s*[:=]\s*['"]?([^\s'"]{8,})['"]?`,
			Keywords:    []string{"secret", "password"},
			Severity:    "high",
		},
		{
			ID:          "pem-private-key",
			Description: "PEM-encoded Private Key",
			Pattern:     `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[- ]BLOCK)?-----`,
			Severity:    "high",
		},
		{
			ID:          "database-connection-url",
			Description: "Database Connection URL with inline credentials",
			Pattern:     `(?i)(?:postgres|mysql|mongodb|redis|amqp)://[^:]+:[^@]+@[^\s]+`,
			Keywords:    []string{"database", "db", "connection"},
			Severity:    "high",
		},
		{
			ID:          "jwt",
			Description: "JSON Web Token",
			Pattern:     `eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`,
			Severity:    "medium",
		},
		{
			ID:          "bearer-authorization-header",
			Description: "Bearer Token in an Authorization header",
			Pattern:     `(?i)(?:authorization|bearer)\s*[:=]\s*['"]?bearer\s+([A-Za-z0-9_\-\.]{20,})['"]?`,
			Keywords:    []string{"authorization", "bearer"},
			Severity:    "medium",
		},
		{
			ID:          "env-file-credential",
			Description: "Credential-shaped environment variable assignment",
			Pattern:     `(?i)(?:^|[^A-Za-z0-9_])(?:DB_PASSWORD|DATABASE_PASSWORD|MYSQL_PASSWORD|POSTGRES_PASSWORD|REDIS_PASSWORD|MONGO_PASSWORD|API_SECRET|APP_SECRET|SECRET_KEY|ENCRYPTION_KEY|PRIVATE_KEY|AUTH_TOKEN|ACCESS_TOKEN|REFRESH_TOKEN|DEX_EMBEDDINGS_APIKEY)\s*[:=]\s*['"]?([^\s'"]{8,})['"]?`,
			Severity:    "high",
		},
	}
}
