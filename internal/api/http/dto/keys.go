package dto

type ActivationKeyResponse struct {
	ID            string `json:"id"`
	Key           string `json:"key"`
	CreatedAt     int64  `json:"created_at"`
	ExpiresAt     int64  `json:"expires_at"`
	AgentDeployed bool   `json:"agent_deployed"`
}

type KeyActionRequest struct {
	Key string `json:"key" binding:"required"`
}

type ValidateKeyResponse struct {
	State         string `json:"state"`
	CreatedAt     int64  `json:"created_at"`
	ExpiresAt     int64  `json:"expires_at"`
	AgentDeployed bool   `json:"agent_deployed"`
}

type ListActivationKeysResponse struct {
	Keys     []ActivationKeyResponse `json:"keys"`
	Total    int64                   `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}
