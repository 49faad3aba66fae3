package entity

// AuthSetup is the MSAL configuration handed to the browser client.
type AuthSetup struct {
	UseLogin     bool         `json:"useLogin"`
	MSALConfig   MSALConfig   `json:"msalConfig"`
	LoginRequest TokenRequest `json:"loginRequest"`
	TokenRequest TokenRequest `json:"tokenRequest"`
}

type MSALConfig struct {
	Auth  MSALAuth  `json:"auth"`
	Cache MSALCache `json:"cache"`
}

type MSALAuth struct {
	ClientID                  string `json:"clientId"`
	Authority                 string `json:"authority"`
	RedirectURI               string `json:"redirectUri"`
	PostLogoutRedirectURI     string `json:"postLogoutRedirectUri"`
	NavigateToLoginRequestURL bool   `json:"navigateToLoginRequestUrl"`
}

type MSALCache struct {
	CacheLocation          string `json:"cacheLocation"`
	StoreAuthStateInCookie bool   `json:"storeAuthStateInCookie"`
}

type TokenRequest struct {
	Scopes []string `json:"scopes"`
}
