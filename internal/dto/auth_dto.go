package dto

type ValidatePinRequest struct {
	Pin string `json:"pin" validate:"required,min=4,max=12"`
}

type ValidatePinResponse struct {
	Valid        bool   `json:"valid"`
	AuthorizedBy string `json:"authorized_by,omitempty"`
	FullName     string `json:"full_name,omitempty"`
}
