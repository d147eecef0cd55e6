// Package extract walks an email's MIME part tree, decoding body text and
// collecting attachment references. Extraction is pure and never fails:
// malformed parts degrade to empty values instead of aborting the email.
package extract

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/utils"
)

// stripPolicy removes every tag, including script and style contents,
// leaving only visible text.
var stripPolicy = bluemonday.StrictPolicy()

// Extract performs a depth-first, order-preserving walk of the payload
// tree. Text parts are decoded and newline-joined in traversal order,
// attachment references are collected as they are encountered. A payload
// with no child parts is treated as a single part.
func Extract(payload *core.Part, messageID string) core.ExtractedContent {
	if payload == nil {
		return core.ExtractedContent{}
	}

	var body strings.Builder
	var attachments []core.AttachmentRef

	var walk func(parts []*core.Part)
	walk = func(parts []*core.Part) {
		for _, part := range parts {
			if part == nil {
				continue
			}

			if isPlainText(part.MimeType) && part.Data != "" {
				body.WriteString(decodeText(part.Data))
				body.WriteString("\n")
			} else if isHTML(part.MimeType) && part.Data != "" {
				body.WriteString(htmlToText(decodeText(part.Data)))
				body.WriteString("\n")
			}

			// An attachment id can coexist with body data above.
			if part.AttachmentID != "" {
				attachments = append(attachments, core.AttachmentRef{
					Filename:     part.Filename,
					AttachmentID: part.AttachmentID,
					MessageID:    messageID,
				})
			}

			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}

	if len(payload.Parts) > 0 {
		walk(payload.Parts)
	} else {
		// Single-part messages carry their body on the payload itself.
		walk([]*core.Part{payload})
	}

	return core.ExtractedContent{
		BodyText:    strings.TrimSpace(body.String()),
		Attachments: attachments,
	}
}

// decodeText decodes URL-safe base64 body data into UTF-8 text, dropping
// undecodable byte sequences rather than failing the whole email.
func decodeText(data string) string {
	decoded, err := utils.DecodeBase64URL(data)
	if err != nil {
		return ""
	}
	return utils.SanitizeUTF8(string(decoded))
}

// htmlToText reduces HTML markup to its visible text content
func htmlToText(markup string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(markup)))
}

func isPlainText(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "text/plain")
}

func isHTML(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "text/html")
}
