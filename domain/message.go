// SPDX-License-Identifier: GPL-3.0-or-later
package domain

// ParsedMessage is the decoded form of a RawMessage. Body holds the decoded
// text part before any cleaning, URLs are extracted from that raw body so
// that normalization cannot strip link syntax first.
type ParsedMessage struct {
	Uid       uint32
	Sender    string
	Subject   string
	Body      string
	Multipart bool
	URLs      []string
}
