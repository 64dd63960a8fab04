package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProviderConfig is the resolved OAuth client setup for one provider.
type ProviderConfig struct {
	Name          string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	Scopes        []string
	AuthURL       string
	TokenURL      string
	APIBaseURL    string
	RatePerMinute int
}

// GetProviderConfig returns provider configuration from JSON config with environment variable fallback.
// Env keys are <PROVIDER>_CLIENT_ID, <PROVIDER>_CLIENT_SECRET and <PROVIDER>_REDIRECT_URI.
func GetProviderConfig(provider string) (*ProviderConfig, error) {
	var client OAuthClient
	switch provider {
	case "twitter":
		client = C.OAuth.Twitter
	case "linkedin":
		client = C.OAuth.LinkedIn
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	prefix := strings.ToUpper(provider)
	return &ProviderConfig{
		Name:          provider,
		ClientID:      getConfigValue(client.ClientID, prefix+"_CLIENT_ID", ""),
		ClientSecret:  getConfigValue(client.ClientSecret, prefix+"_CLIENT_SECRET", ""),
		RedirectURL:   getConfigValue(client.RedirectURI, prefix+"_REDIRECT_URI", CallbackURL(provider)),
		Scopes:        client.Scopes,
		AuthURL:       getConfigValue(client.AuthURL, prefix+"_AUTH_URL", ""),
		TokenURL:      getConfigValue(client.TokenURL, prefix+"_TOKEN_URL", ""),
		APIBaseURL:    getConfigValue(client.APIBaseURL, prefix+"_API_BASE_URL", ""),
		RatePerMinute: getIntValue(client.RatePerMinute, prefix+"_RATE_PER_MINUTE", 60),
	}, nil
}

// CallbackURL is the redirect URI the provider must be configured with when none is set explicitly.
func CallbackURL(provider string) string {
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(C.App.BaseURL, "/"), provider)
}

// getConfigValue gets value from config first, then environment variable, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	// Environment variable takes precedence when provided
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	// Otherwise use config value if set and not a placeholder
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}

func getIntValue(configValue int, envKey string, defaultValue int) int {
	if v := os.Getenv(envKey); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}
