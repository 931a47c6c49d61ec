// SPDX-License-Identifier: GPL-3.0-or-later
package domain

const EventNewEmail = "new_email"

// Event is the ephemeral message pushed to live subscribers. It is never
// persisted.
type Event struct {
	Type  string     `json:"type"`
	Email EventEmail `json:"email"`
}

type EventEmail struct {
	Id         int64    `json:"id"`
	Sender     string   `json:"sender"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Confidence float64  `json:"confidence"`
	URLs       []string `json:"urls"`
}

func NewEmailEvent(email *PhishingEmail, urls []*EmailURL) Event {
	urlStrings := make([]string, 0, len(urls))
	for _, u := range urls {
		urlStrings = append(urlStrings, u.URL)
	}

	return Event{
		Type: EventNewEmail,
		Email: EventEmail{
			Id:         email.Id,
			Sender:     email.Sender,
			Subject:    email.Subject,
			Body:       email.Body,
			Confidence: email.Confidence,
			URLs:       urlStrings,
		},
	}
}

// Broadcaster fans an event out to every currently connected subscriber.
// Delivery is best-effort, a failed subscriber is dropped without affecting
// the rest.
type Broadcaster interface {
	Broadcast(event Event)
}
