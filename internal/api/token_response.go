package api

// TokenResponse 回傳簽發的存取令牌，明文只出現在這個回應一次。
// swagger:model api.TokenResponse
type TokenResponse struct {
	AccessToken string `json:"access_token" example:"3q2-8sk7vGq..."`
	TokenType   string `json:"token_type" example:"Bearer"`
}
