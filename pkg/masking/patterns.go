package masking

// builtinPattern is the unresolved form of a regex masking rule:
// pattern, replacement, and a human-readable description.
type builtinPattern struct {
	Pattern string
	Replacement string
	Description string
}

// builtinPatterns is the fixed table of regex masking rules this module
// ships with. The generic credential patterns (api_key, token, private_key,
// secret_key, aws_*, github/slack tokens) carry over unchanged since tool
// input/output can legitimately contain any of them (a tool error message
// echoing a misconfigured provider key, a webhook notifier URL with a
// token query param); "password"/"certificate"/"ssh_key"/
// "certificate_authority_data" are dropped.
func builtinPatterns() map[string]builtinPattern {
	return map[string]builtinPattern{
		"api_key": {
			Pattern: `(?i)(?:api[_-]?key|apikey)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})["']?`,
			Replacement: `"api_key": "[MASKED_API_KEY]"`,
			Description: "API keys",
		},
		"token": {
			Pattern: `(?i)(?:token|bearer|jwt)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-\.]{20,})["']?`,
			Replacement: `"token": "[MASKED_TOKEN]"`,
			Description: "Access tokens",
		},
		"private_key": {
			Pattern: `(?i)(?:private[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-\.]{20,})["']?`,
			Replacement: `"private_key": "[MASKED_PRIVATE_KEY]"`,
			Description: "Wallet/signing private keys",
		},
		"secret_key": {
			Pattern: `(?i)(?:secret[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-\.]{20,})["']?`,
			Replacement: `"secret_key": "[MASKED_SECRET_KEY]"`,
			Description: "Secret keys",
		},
		"aws_access_key": {
			Pattern: `(?i)(?:aws[_-]?access[_-]?key[_-]?id)["']?\s*[:=]\s*["']?(AKIA[A-Z0-9]{16})["']?`,
			Replacement: `"aws_access_key_id": "[MASKED_AWS_KEY]"`,
			Description: "AWS access keys",
		},
		"aws_secret_key": {
			Pattern: `(?i)(?:aws[_-]?secret[_-]?access[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`,
			Replacement: `"aws_secret_access_key": "[MASKED_AWS_SECRET]"`,
			Description: "AWS secret keys",
		},
		"github_token": {
			Pattern: `(?i)(?:github[_-]?token|gh[ps]_[A-Za-z0-9_]{36,255})`,
			Replacement: `[MASKED_GITHUB_TOKEN]`,
			Description: "GitHub tokens (used by cmd/tradeagent's release/status tooling)",
		},
		"slack_token": {
			Pattern: `(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`,
			Replacement: `[MASKED_SLACK_TOKEN]`,
			Description: "Slack bot tokens (pkg/chat Slack adapter)",
		},
		"email": {
			Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`,
			Replacement: `[MASKED_EMAIL]`,
			Description: "Email addresses (chat recipient identifiers)",
		},
		"wallet_address": {
			Pattern: `\b0x[a-fA-F0-9]{40}\b`,
			Replacement: `[MASKED_WALLET_ADDRESS]`,
			Description: "EVM-style wallet addresses",
		},
	}
}

// builtinPatternGroups defines named bundles a MaskingConfig can select
// by name instead of listing every pattern individually.
func builtinPatternGroups() map[string][]string {
	return map[string][]string{
		"basic": {"api_key", "token"},
		"secrets": {"api_key", "token", "private_key", "secret_key", "aws_access_key", "aws_secret_key", "github_token", "slack_token"},
		"wallet": {"wallet_key", "wallet_address"},
		"pii": {"email"},
		"all": {"api_key", "token", "private_key", "secret_key", "aws_access_key", "aws_secret_key", "github_token", "slack_token", "email", "wallet_key", "wallet_address"},
	}
}

// builtinCodeMaskers names the code-based (structural) maskers selectable
// via a pattern group.
func builtinCodeMaskers() []string {
	return []string{"wallet_key"}
}
