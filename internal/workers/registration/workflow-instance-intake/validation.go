package workflowinstanceintake

import (
	"encoding/json"
	"strings"

	"workflow-intake/internal/common/errors"
	"workflow-intake/internal/common/validation"
	"workflow-intake/internal/models"
)

var inputSchema = validation.NewSchema(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["registrationId"],
	"properties": {
		"registrationId": {
			"type": "string",
			"minLength": 1,
			"description": "Registration id of the captured packet"
		},
		"process": {
			"type": "string",
			"description": "Registration type, e.g. NEW"
		},
		"source": {
			"type": "string",
			"description": "Packet source, e.g. REGISTRATION_CLIENT"
		},
		"additionalInfoReqId": {
			"type": ["string", "null"]
		},
		"additionalInfo": {
			"type": ["object", "null"],
			"properties": {
				"name":  {"type": ["string", "null"]},
				"email": {"type": ["string", "null"]},
				"phone": {"type": ["string", "null"]}
			}
		}
	}
}`)

// ParseRequest validates raw request variables and maps them onto an
// IntakeRequest. Invalid input yields a RPR_WIS_INVALID_INPUT StandardError.
func ParseRequest(variables map[string]interface{}) (*models.IntakeRequest, error) {
	result, err := inputSchema.Validate(variables)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, errors.NewInvalidInputError(
			"Validation errors: " + strings.Join(result.GetErrorMessages(), "; "),
		)
	}

	raw, err := json.Marshal(variables)
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	var req models.IntakeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	return &req, nil
}

// RegistrationIDFrom returns the registration id carried by raw request
// variables, or "" when it is absent or not a string.
func RegistrationIDFrom(variables map[string]interface{}) string {
	rid, _ := variables["registrationId"].(string)
	return rid
}
