package crypto

import "fmt"

const (
	centerIDLength  = 5
	machineIDLength = 5
)

// RefID returns the encryption reference id for a registration. A non-empty
// refID is used as-is; otherwise it is "<centerId>_<machineId>", taken from
// the first ten characters of the registration id.
func RefID(registrationID, refID string) (string, error) {
	if refID != "" {
		return refID, nil
	}
	if len(registrationID) < centerIDLength+machineIDLength {
		return "", fmt.Errorf("registration id %q is too short to derive a reference id", registrationID)
	}
	centerID := registrationID[:centerIDLength]
	machineID := registrationID[centerIDLength : centerIDLength+machineIDLength]
	return centerID + "_" + machineID, nil
}
