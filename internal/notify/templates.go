// internal/notify/templates.go
package notify

import (
	"fmt"
	"strings"

	"citizen-services/internal/models"
)

// statusTemplates maps the status an application just entered to the
// message sent to the submitter.
var statusTemplates = map[models.ApplicationStatus]map[string]string{
	models.StatusSubmitted: {
		"subject": "Application Received",
		"body":    "Dear {{firstName}}, your {{applicationType}} application ({{applicationId}}) has been received and is awaiting review by your Grama Niladhari.",
	},
	models.StatusApprovedByGN: {
		"subject": "Application Approved by Grama Niladhari",
		"body":    "Dear {{firstName}}, your {{applicationType}} application ({{applicationId}}) was approved by the Grama Niladhari and forwarded to the Divisional Secretariat. {{comment}}",
	},
	models.StatusRejectedByGN: {
		"subject": "Application Rejected",
		"body":    "Dear {{firstName}}, your {{applicationType}} application ({{applicationId}}) was rejected by the Grama Niladhari. Reason: {{comment}}",
	},
	models.StatusOnHoldByDS: {
		"subject": "Application On Hold",
		"body":    "Dear {{firstName}}, your {{applicationType}} application ({{applicationId}}) has been placed on hold by the Divisional Secretariat. {{comment}}",
	},
	models.StatusSentToDRP: {
		"subject": "Application Forwarded for Processing",
		"body":    "Dear {{firstName}}, your {{applicationType}} application ({{applicationId}}) has been forwarded to the Department for the Registration of Persons.",
	},
	models.StatusCompleted: {
		"subject": "Application Completed",
		"body":    "Dear {{firstName}}, your {{applicationType}} application ({{applicationId}}) has been completed. {{comment}}",
	},
}

// renderTemplate substitutes {{key}} placeholders and strips any that have
// no value, so a missing comment never leaks braces into the message.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return strings.TrimSpace(result)
}

// renderMessage builds the subject and body for an event addressed to the
// given recipient. Returns false when no template exists for the status.
func renderMessage(event models.NotificationEvent, recipient models.User) (subject, body string, ok bool) {
	template, exists := statusTemplates[event.NewStatus]
	if !exists {
		return "", "", false
	}

	data := map[string]interface{}{
		"firstName":       recipient.FirstName,
		"lastName":        recipient.LastName,
		"applicationId":   event.ApplicationID,
		"applicationType": string(event.ApplicationType),
		"oldStatus":       string(event.OldStatus),
		"newStatus":       string(event.NewStatus),
		"comment":         event.Comment,
	}
	return renderTemplate(template["subject"], data), renderTemplate(template["body"], data), true
}
