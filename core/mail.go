package core

import (
	"bytes"
	"net/mail"
	"text/template"
)

// Email categories, used by the providers to group deliveries.
const (
	MailCategoryEnrollment = "enrollment"
	MailCategoryGrading    = "grading"
)

type (
	EmailMessage struct {
		To       []mail.Address
		Subject  string
		Category string
		BodyStr  string // simple text/plain, non-templated content

		// templated contents
		Template     *template.Template
		TemplateData interface{}
		TextContent  string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

var (
	enrollmentDecisionTmpl = template.Must(template.New("enrollment-decision").Parse(
		`Hi {{.Name}},

Your enrollment request for "{{.Course}}" has been {{.Status}}.
{{- if eq .Status "approved"}}
You now have access to its lessons, materials and assignments.
{{- end}}
`))

	submissionGradedTmpl = template.Must(template.New("submission-graded").Parse(
		`Hi {{.Name}},

Your submission for "{{.Assignment}}" has been graded: {{.Score}}/{{.MaxScore}}.
{{- with .Feedback}}

Feedback from your teacher:
{{.}}
{{- end}}
`))
)

// NewEnrollmentDecisionEmail tells a student that their request for courseTitle was approved or rejected.
func NewEnrollmentDecisionEmail(to mail.Address, courseTitle, status string) *EmailMessage {
	return &EmailMessage{
		To:       []mail.Address{to},
		Subject:  "Enrollment " + status,
		Category: MailCategoryEnrollment,
		Template: enrollmentDecisionTmpl,
		TemplateData: map[string]string{
			"Name":   to.Name,
			"Course": courseTitle,
			"Status": status,
		},
	}
}

// NewSubmissionGradedEmail tells a student the grade of their submission.
func NewSubmissionGradedEmail(to mail.Address, assignmentTitle string, score, maxScore float64, feedback string) *EmailMessage {
	return &EmailMessage{
		To:       []mail.Address{to},
		Subject:  "Submission graded",
		Category: MailCategoryGrading,
		Template: submissionGradedTmpl,
		TemplateData: map[string]interface{}{
			"Name":       to.Name,
			"Assignment": assignmentTitle,
			"Score":      score,
			"MaxScore":   maxScore,
			"Feedback":   feedback,
		},
	}
}

// Render fills TextContent from BodyStr or from the template.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.Template == nil {
		return nil
	}
	var buff bytes.Buffer
	if err := m.Template.Execute(&buff, m.TemplateData); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool {
	return len(m.To) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != ""
}
