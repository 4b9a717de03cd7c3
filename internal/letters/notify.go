package letters

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
)

const (
	previewLimit    = 1000
	previewEllipsis = "…"
	emailDateLayout = "January 2, 2006"
)

//go:embed templates/letter_email.html
var templateFS embed.FS

var letterEmailTemplate = template.Must(template.ParseFS(templateFS, "templates/letter_email.html"))

type emailView struct {
	AppName          string
	AttorneyName     string
	SenderName       string
	Title            string
	RecipientName    string
	RecipientAddress string
	CreatedAt        string
	Preview          string
	PDFURL           string
}

// Preview truncates content to previewLimit runes, marking the cut with an ellipsis.
func Preview(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= previewLimit {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLimit]) + previewEllipsis
}

// PDFURL is the public download link for a letter.
func PDFURL(baseURL string, letter *models.Letter) string {
	return fmt.Sprintf("%s/api/letters/%s/pdf", strings.TrimRight(baseURL, "/"), letter.ID)
}

func renderLetterEmail(appName, baseURL, senderName, attorneyName string, letter *models.Letter) (string, error) {
	view := emailView{
		AppName:          appName,
		AttorneyName:     strings.TrimSpace(attorneyName),
		SenderName:       senderName,
		Title:            letter.Title,
		RecipientName:    letter.RecipientName,
		RecipientAddress: letter.RecipientAddress,
		CreatedAt:        letter.CreatedAt.UTC().Format(emailDateLayout),
		Preview:          Preview(letter.Content),
		PDFURL:           PDFURL(baseURL, letter),
	}
	var buf bytes.Buffer
	if err := letterEmailTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render letter email: %w", err)
	}
	return buf.String(), nil
}

func emailSubject(letter *models.Letter) string {
	return "Legal letter for review: " + strings.Join(strings.Fields(letter.Title), " ")
}
