package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Date:             time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC),
		RecipientName:    "Acme Widgets LLC",
		RecipientAddress: "100 Main Street\nSuite 4\r\nSpringfield, IL 62701",
		Title:            "Demand for payment of invoice #1042",
		Body:             "We write regarding invoice #1042.\n\nPayment of $1,200 was due on January 15.\nPlease remit within 14 days.\n\n\nSincerely,\nJane Client",
		Author:           "Jane Client",
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	first, err := Render(sampleDocument())
	require.NoError(t, err)
	second, err := Render(sampleDocument())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(first, []byte("%PDF-")))
	assert.True(t, bytes.Equal(first, second), "identical input must render identical bytes")
	assert.True(t, bytes.Contains(first, []byte("20260301")), "creation date comes from the letter")
}

func TestRenderChangesWithContent(t *testing.T) {
	base, err := Render(sampleDocument())
	require.NoError(t, err)

	doc := sampleDocument()
	doc.Body += "\nP.S. One more line."
	changed, err := Render(doc)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(base, changed))
}

func TestLayoutPaginatesLongBodies(t *testing.T) {
	short, err := layout(sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, 1, short.PageCount())

	doc := sampleDocument()
	paragraph := strings.Repeat("The respondent failed to honour the agreed terms of delivery. ", 12)
	doc.Body = strings.Repeat(paragraph+"\n\n", 12)
	long, err := layout(doc)
	require.NoError(t, err)
	assert.Greater(t, long.PageCount(), 1)
}

func TestRenderRequiresDate(t *testing.T) {
	doc := sampleDocument()
	doc.Date = time.Time{}
	_, err := Render(doc)
	assert.ErrorIs(t, err, errMissingDate)
}

func TestSalutation(t *testing.T) {
	assert.Equal(t, "Dear Acme,", salutation(" Acme "))
	assert.Equal(t, "To Whom It May Concern,", salutation(""))
}
