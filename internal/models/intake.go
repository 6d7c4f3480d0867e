// internal/models/intake.go
package models

// IntakeRequest asks for a new workflow instance for a captured packet.
type IntakeRequest struct {
	RegistrationID      string         `json:"registrationId"`
	Process             string         `json:"process"`
	Source              string         `json:"source"`
	AdditionalInfoReqID string         `json:"additionalInfoReqId,omitempty"`
	AdditionalInfo      AdditionalInfo `json:"additionalInfo"`
}

// AdditionalInfo is the auxiliary PII block stored encrypted in
// registration_list.optional_values. Nil fields serialize as null.
type AdditionalInfo struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}
