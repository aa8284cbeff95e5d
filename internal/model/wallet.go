package model

// DelegationRequest represents request for POST /wallets/{walletId}/delegation
type DelegationRequest struct {
	Chain string `json:"chain,omitempty"`
}

// DelegationResponse represents response for POST /wallets/{walletId}/delegation.
// Capability is "requested" when the provisioning service accepted the request
// and "unsupported" when the environment cannot delegate this wallet.
type DelegationResponse struct {
	WalletID   string `json:"walletId"`
	Capability string `json:"capability"`
	Message    string `json:"message,omitempty"`
}

// ProvisioningDelegationRequest is the body sent to the provisioning service.
type ProvisioningDelegationRequest struct {
	Chain string `json:"chain,omitempty"`
}

// ProvisioningUserResponse is the provisioning service's user object. Only
// the fields read here are declared.
type ProvisioningUserResponse struct {
	User ProvisioningUser `json:"user"`
}

// ProvisioningUser is a provisioning service user.
type ProvisioningUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
