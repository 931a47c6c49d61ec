// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	stdmail "net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"

	"github.com/emersion/go-message/charset"
)

// The $-_ range deliberately spans the ascii block with /, ?, = and friends.
var urlPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*(),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// Parse decodes a fetched message into its classifier-facing form. URLs are
// extracted from the decoded body before any cleaning so link syntax is still
// intact.
func Parse(raw *domain.RawMessage) (*domain.ParsedMessage, error) {
	msg, err := stdmail.ReadMessage(bytes.NewReader(raw.Raw))
	if err != nil {
		return nil, fmt.Errorf("could not parse mail: %w", err)
	}

	subject := decodeSubject(msg.Header.Get("Subject"))
	sender := msg.Header.Get("From")

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		// No or broken Content-Type, treat the payload as a single text part
		mediaType = "text/plain"
	}

	isMultipart := strings.HasPrefix(mediaType, "multipart/")

	var body string
	if isMultipart {
		body, err = textPart(msg.Body, params["boundary"])
		if err != nil {
			return nil, fmt.Errorf("could not extract text part: %w", err)
		}
	} else {
		body = decodePayload(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
	}

	return &domain.ParsedMessage{
		Uid:       raw.Uid,
		Sender:    sender,
		Subject:   subject,
		Body:      body,
		Multipart: isMultipart,
		URLs:      ExtractURLs(body),
	}, nil
}

// ExtractURLs pattern-matches raw URLs in text. It must run on the decoded
// body, not on normalized text.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

func ShortSubject(subject string) string {
	if (len(subject)) > 30 {
		subject = subject[:30] + "..."
	}
	return subject
}

// decodeSubject decodes an encoded-word subject header using its declared
// charset. Undecodable headers fall back to the raw value with invalid bytes
// replaced instead of aborting the message.
func decodeSubject(header string) string {
	dec := &mime.WordDecoder{
		CharsetReader: charset.Reader,
	}
	subject, err := dec.DecodeHeader(header)
	if err != nil {
		return strings.ToValidUTF8(header, string(utf8.RuneError))
	}

	return subject
}

// textPart walks a multipart body and returns the first text/plain part that
// is not an attachment, matching what the mailbox UI would render.
func textPart(body io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", fmt.Errorf("multipart message without boundary")
	}

	mr := multipart.NewReader(body, boundary)
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("could not read next part: %w", err)
		}

		partType, partParams, err := mime.ParseMediaType(p.Header.Get("Content-Type"))
		if err != nil {
			continue
		}

		if strings.HasPrefix(partType, "multipart/") {
			nested, err := textPart(p, partParams["boundary"])
			if err != nil || nested != "" {
				return nested, err
			}
			continue
		}

		if partType != "text/plain" {
			continue
		}

		if strings.Contains(strings.ToLower(p.Header.Get("Content-Disposition")), "attachment") {
			continue
		}

		return decodePayload(p, p.Header.Get("Content-Transfer-Encoding"), partParams["charset"]), nil
	}
}

// decodePayload applies the transfer encoding and charset of a single part.
// Decode failures replace the broken input rather than failing the message.
func decodePayload(r io.Reader, transferEncoding, charsetName string) string {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, newLineStripper(r))
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}

	if charsetName != "" && !strings.EqualFold(charsetName, "utf-8") && !strings.EqualFold(charsetName, "us-ascii") {
		if converted, err := charset.Reader(charsetName, r); err == nil {
			r = converted
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		// Keep whatever decoded cleanly before the error
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}

	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// newLineStripper removes CRLF from base64 payloads, which arrive wrapped at
// 76 characters.
func newLineStripper(r io.Reader) io.Reader {
	return &lineStripper{r: r}
}

type lineStripper struct {
	r io.Reader
}

func (l *lineStripper) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	if n == 0 {
		return n, err
	}

	kept := 0
	for _, b := range p[:n] {
		if b == '\r' || b == '\n' {
			continue
		}
		p[kept] = b
		kept++
	}

	return kept, err
}
