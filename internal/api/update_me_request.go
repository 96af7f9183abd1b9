package api

// swagger:model api.UpdateMeRequest
type UpdateMeRequest struct {
	Name  string `json:"name" validate:"required" example:"Alice"`
	Email string `json:"email" validate:"required,email" example:"alice@example.com"`
}
