package dto

type AuthURLResponse struct {
	AuthURL string `json:"authUrl"`
}

// CallbackResponse is returned by the provider callback for both outcomes.
type CallbackResponse struct {
	Success     bool   `json:"success"`
	Provider    string `json:"provider,omitempty"`
	AccountName string `json:"accountName,omitempty"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
}

// DebugOAuthResponse reports configuration presence only, never values.
type DebugOAuthResponse struct {
	EncryptionKeySet bool                       `json:"encryptionKeySet"`
	JWTSecretSet     bool                       `json:"jwtSecretSet"`
	VerifierBackend  string                     `json:"verifierBackend"`
	Providers        map[string]DebugProviderVM `json:"providers"`
}

type DebugProviderVM struct {
	ClientIDSet     bool   `json:"clientIdSet"`
	ClientSecretSet bool   `json:"clientSecretSet"`
	CallbackURL     string `json:"callbackUrl"`
	PKCE            bool   `json:"pkce"`
}
