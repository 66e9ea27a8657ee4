package api

type infoResponse struct {
	Status              string  `json:"status"`
	BaseURL             string  `json:"baseURL"`
	RegistrationEnabled bool    `json:"registrationEnabled"`
	LoginNotice         *string `json:"loginNotice"`
}

type sessionResponse struct {
	Status string `json:"status"`
	User   string `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	UUID     string `json:"uuid,omitempty"`
}

type loginResponse struct {
	Status   string `json:"status"`
	Username string `json:"username"`
	// Milliseconds since the Unix epoch.
	Expiry int64  `json:"expiry"`
	Token  string `json:"token"`
}

type doConnectRequest struct {
	ServerHash string `json:"serverHash"`
}

type doConnectResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

type verifyConnectRequest struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	ServerID string `json:"serverId"`
	IP       string `json:"ip,omitempty"`
}
