// internal/lifecycle/validate.go
package lifecycle

import (
	"fmt"
	"strings"

	cerrors "citizen-services/internal/common/errors"
	"citizen-services/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// Payload schemas per application type. The engine treats the payload as
// opaque after admission; validation happens once, before any store access.
var payloadSchemas = map[models.ApplicationType]string{
	models.TypeNICReissue: `{
		"type": "object",
		"properties": {
			"nicNumber":    {"type": "string", "minLength": 10, "maxLength": 12},
			"reason":       {"type": "string", "enum": ["LOST", "DAMAGED", "NAME_CHANGE", "EXPIRED"]},
			"policeReport": {"type": "string"}
		},
		"required": ["nicNumber", "reason"]
	}`,
	models.TypeBirthCertificate: `{
		"type": "object",
		"properties": {
			"registrationNumber": {"type": "string", "minLength": 1},
			"districtOfBirth":    {"type": "string", "minLength": 1},
			"dateOfBirth":        {"type": "string"}
		},
		"required": ["registrationNumber", "districtOfBirth"]
	}`,
	models.TypeCharacterCert: `{
		"type": "object",
		"properties": {
			"purpose":          {"type": "string", "minLength": 1},
			"residencePeriod":  {"type": "string"}
		},
		"required": ["purpose"]
	}`,
}

// validatePayload checks the application data against the schema registered
// for its type.
func validatePayload(appType models.ApplicationType, payload map[string]interface{}) error {
	schemaStr, ok := payloadSchemas[appType]
	if !ok {
		return cerrors.NewValidation(fmt.Sprintf("unknown application type: %s", appType))
	}
	if payload == nil {
		return cerrors.NewValidation("applicationData is required")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaStr),
		gojsonschema.NewGoLoader(payload),
	)
	if err != nil {
		return cerrors.NewValidation(fmt.Sprintf("schema validation: %v", err))
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return cerrors.NewValidation(strings.Join(details, "; "))
	}
	return nil
}
