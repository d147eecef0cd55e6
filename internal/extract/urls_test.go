package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLsEmptyText(t *testing.T) {
	assert.Nil(t, URLs(""))
	assert.Nil(t, URLs("no links in here"))
}

func TestURLsFirstSeenOrder(t *testing.T) {
	text := "visit https://b.example.com then http://a.example.com/path and https://b.example.com again"

	urls := URLs(text)

	assert.Equal(t, []string{"https://b.example.com", "http://a.example.com/path"}, urls)
}

func TestURLsDistinguishesQueryStrings(t *testing.T) {
	text := "http://x.test/a?id=1 http://x.test/a?id=2"

	urls := URLs(text)

	assert.Len(t, urls, 2)
}

func TestURLsInsideMarkupStrippedText(t *testing.T) {
	// Extraction output is plain text, so URLs arrive surrounded by prose.
	text := "Update your account: https://login.bank-example.com/verify now."

	urls := URLs(text)

	assert.Equal(t, []string{"https://login.bank-example.com/verify"}, urls)
}
