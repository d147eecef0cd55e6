package gateway

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// ParseMessage converts a raw RFC822 message into the payload tree the
// pipeline consumes, returning the inline attachment bytes keyed by the
// synthetic attachment ids placed in the tree. Parsing is tolerant: parts
// that cannot be read are skipped rather than failing the message.
func ParseMessage(msg *mail.Message, messageID string) (*core.Email, map[string][]byte, error) {
	email := &core.Email{
		EmailSummary: core.EmailSummary{
			ID:      messageID,
			Subject: msg.Header.Get("Subject"),
			Sender:  msg.Header.Get("From"),
			Date:    msg.Header.Get("Date"),
		},
	}

	attachments := make(map[string][]byte)
	counter := 0

	payload, err := convertBody(msg.Body, msg.Header.Get("Content-Type"),
		msg.Header.Get("Content-Transfer-Encoding"), attachments, &counter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert message body: %w", err)
	}
	email.Payload = payload

	return email, attachments, nil
}

// convertBody builds one Part (possibly a multipart container) from a body
// reader and its declared content type
func convertBody(body io.Reader, contentType, transferEncoding string, attachments map[string][]byte, counter *int) (*core.Part, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// No usable Content-Type; treat the whole body as plain text.
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary, ok := params["boundary"]
		if !ok {
			return &core.Part{MimeType: mediaType}, nil
		}

		container := &core.Part{MimeType: mediaType}
		reader := multipart.NewReader(body, boundary)
		for {
			subpart, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				// Return whatever was parsed before the malformed part.
				return container, nil
			}

			child, err := convertPart(subpart, attachments, counter)
			if err != nil {
				continue
			}
			container.Parts = append(container.Parts, child)
		}
		return container, nil
	}

	data, err := decodeTransfer(body, transferEncoding)
	if err != nil {
		return &core.Part{MimeType: mediaType}, nil
	}
	return &core.Part{
		MimeType: mediaType,
		Data:     base64.RawURLEncoding.EncodeToString(data),
	}, nil
}

// convertPart maps one multipart subpart onto the core Part shape.
// Attachments get a synthetic id and their bytes stashed for the inline
// fetcher; nested multiparts recurse.
func convertPart(part *multipart.Part, attachments map[string][]byte, counter *int) (*core.Part, error) {
	contentType := part.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if boundary, ok := params["boundary"]; ok {
			nested := &core.Part{MimeType: mediaType}
			reader := multipart.NewReader(part, boundary)
			for {
				subpart, err := reader.NextPart()
				if err != nil {
					break
				}
				child, err := convertPart(subpart, attachments, counter)
				if err != nil {
					continue
				}
				nested.Parts = append(nested.Parts, child)
			}
			return nested, nil
		}
		return &core.Part{MimeType: mediaType}, nil
	}

	data, err := decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return nil, err
	}

	filename := part.FileName()
	if filename == "" && isAttachmentDisposition(part.Header.Get("Content-Disposition")) {
		filename = params["name"]
	}

	converted := &core.Part{MimeType: mediaType, Filename: filename}
	if filename != "" {
		*counter++
		attachmentID := fmt.Sprintf("inline-%d", *counter)
		attachments[attachmentID] = data
		converted.AttachmentID = attachmentID
	}
	if strings.HasPrefix(mediaType, "text/") {
		converted.Data = base64.RawURLEncoding.EncodeToString(data)
	}

	return converted, nil
}

// decodeTransfer undoes the content transfer encoding of a body part
func decodeTransfer(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return io.ReadAll(base64.NewDecoder(base64.StdEncoding, r))
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(r))
	default:
		return io.ReadAll(r)
	}
}

func isAttachmentDisposition(disposition string) bool {
	mediaType, _, err := mime.ParseMediaType(disposition)
	if err != nil {
		return false
	}
	return mediaType == "attachment"
}
