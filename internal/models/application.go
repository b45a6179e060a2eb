// internal/models/application.go
package models

import "time"

// ApplicationStatus enumerates the states of the review pipeline.
type ApplicationStatus string

const (
	StatusSubmitted    ApplicationStatus = "SUBMITTED"
	StatusApprovedByGN ApplicationStatus = "APPROVED_BY_GN"
	StatusRejectedByGN ApplicationStatus = "REJECTED_BY_GN"
	StatusOnHoldByDS   ApplicationStatus = "ON_HOLD_BY_DS"
	StatusSentToDRP    ApplicationStatus = "SENT_TO_DRP"
	StatusCompleted    ApplicationStatus = "COMPLETED"
)

// Valid reports whether the status is a known state.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusApprovedByGN, StatusRejectedByGN,
		StatusOnHoldByDS, StatusSentToDRP, StatusCompleted:
		return true
	}
	return false
}

// ApplicationType enumerates the supported application categories.
type ApplicationType string

const (
	TypeNICReissue       ApplicationType = "NIC_REISSUE"
	TypeBirthCertificate ApplicationType = "BIRTH_CERTIFICATE_COPY"
	TypeCharacterCert    ApplicationType = "CHARACTER_CERTIFICATE"
)

func (t ApplicationType) Valid() bool {
	switch t {
	case TypeNICReissue, TypeBirthCertificate, TypeCharacterCert:
		return true
	}
	return false
}

type Application struct {
	ID            string                 `json:"id"`
	SubmitterID   string                 `json:"submitterId"`
	Type          ApplicationType        `json:"applicationType"`
	Payload       map[string]interface{} `json:"applicationData"`
	CurrentStatus ApplicationStatus      `json:"currentStatus"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// ApplicationView is a list/detail row with the submitter and attachment
// metadata joined in for display.
type ApplicationView struct {
	Application
	Submitter   *User        `json:"user,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment metadata is read-only for this service; the document storage
// collaborator owns the lifecycle.
type Attachment struct {
	ID             string    `json:"id"`
	ApplicationID  string    `json:"applicationId"`
	UploadedByID   string    `json:"uploadedByUserId"`
	AttachmentType string    `json:"attachmentType"`
	FileName       string    `json:"fileName"`
	FileURL        string    `json:"fileUrl"`
	FieldKey       string    `json:"fieldKey,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
