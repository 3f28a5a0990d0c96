package entity

// APIKey is a named external-provider credential stored in the apikey
// table. The LLM orchestrator resolves its DeepSeek credential by name
// rather than an environment variable, so the key can be rotated without
// restarting the driver.
type APIKey struct {
	Name    string
	Value   string
	BaseURL string // empty means use the provider's default endpoint
}
