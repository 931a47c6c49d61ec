// SPDX-License-Identifier: GPL-3.0-or-later
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"
	"github.com/AkshayRane05/Phishing-Detection-Tool/hub"
	"github.com/AkshayRane05/Phishing-Detection-Tool/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitLogging("error")
	os.Exit(m.Run())
}

type fakeStore struct {
	domain.Store

	emails    []*domain.PhishingEmail
	urls      map[int64][]*domain.EmailURL
	listErr   error
	insertErr error
	updateErr error
	duplicate bool

	inserted      []*domain.PhishingEmail
	statusUpdates map[int64]domain.EmailStatus
}

func (f *fakeStore) RecentEmails(limit int) ([]*domain.PhishingEmail, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.emails) > limit {
		return f.emails[:limit], nil
	}
	return f.emails, nil
}

func (f *fakeStore) URLsForEmail(emailId int64) ([]*domain.EmailURL, error) {
	return f.urls[emailId], nil
}

func (f *fakeStore) InsertDetection(email *domain.PhishingEmail, urls []domain.CheckedURL) ([]*domain.EmailURL, bool, error) {
	if f.insertErr != nil {
		return nil, false, f.insertErr
	}
	if f.duplicate {
		return nil, false, nil
	}

	email.Id = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, email)

	stored := []*domain.EmailURL{}
	for i, u := range urls {
		stored = append(stored, &domain.EmailURL{Id: int64(i + 1), EmailId: email.Id, URL: u.URL, Status: u.Status})
	}
	return stored, true, nil
}

func (f *fakeStore) UpdateEmailStatus(id int64, status domain.EmailStatus) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.statusUpdates[id] = status
	return nil
}

type fakeScorer struct {
	score  float64
	err    error
	scored []string
}

func (f *fakeScorer) Score(text string) (float64, error) {
	f.scored = append(f.scored, text)
	return f.score, f.err
}

type fakeURLChecker struct {
	status domain.URLStatus
}

func (f *fakeURLChecker) CheckURL(url string) domain.URLStatus {
	return f.status
}

type fakeSubscriber struct {
	received []domain.Event
}

func (f *fakeSubscriber) Send(event domain.Event) error {
	f.received = append(f.received, event)
	return nil
}

func (f *fakeSubscriber) Close() error {
	return nil
}

type testServer struct {
	server  *Server
	store   *fakeStore
	scorer  *fakeScorer
	checker *fakeURLChecker
	hub     *hub.Hub
}

func newTestServer() *testServer {
	ts := &testServer{
		store:   &fakeStore{urls: map[int64][]*domain.EmailURL{}, statusUpdates: map[int64]domain.EmailStatus{}},
		scorer:  &fakeScorer{},
		checker: &fakeURLChecker{status: domain.URLLegitimate},
		hub:     hub.NewHub(),
	}
	ts.server = NewServer(ts.store, ts.scorer, ts.checker, ts.hub)
	return ts
}

func (ts *testServer) request(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	ts.server.engine.ServeHTTP(recorder, req)

	decoded := map[string]any{}
	if recorder.Body.Len() > 0 && strings.HasPrefix(recorder.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	}
	return recorder, decoded
}

func TestHealth(t *testing.T) {
	ts := newTestServer()

	recorder, body := ts.request(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetEmails(t *testing.T) {
	ts := newTestServer()
	ts.store.emails = []*domain.PhishingEmail{
		{Id: 2, Uid: "1018", Sender: "b@evil.example", Subject: "Second", Confidence: 0.88, Status: domain.StatusUnverified},
		{Id: 1, Uid: "1017", Sender: "a@evil.example", Subject: "First", Confidence: 0.93, Status: domain.StatusQuarantined},
	}
	ts.store.urls[1] = []*domain.EmailURL{{Id: 1, EmailId: 1, URL: "http://evil.example/a", Status: domain.URLPhishing}}

	recorder, _ := ts.request(t, http.MethodGet, "/emails", "")

	require.Equal(t, http.StatusOK, recorder.Code)

	result := []map[string]any{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, "b@evil.example", result[0]["sender"])
	assert.Empty(t, result[0]["urls"])
	urls := result[1]["urls"].([]any)
	require.Len(t, urls, 1)
	assert.Equal(t, "http://evil.example/a", urls[0].(map[string]any)["url"])
}

func TestGetEmailsStoreFailure(t *testing.T) {
	ts := newTestServer()
	ts.store.listErr = fmt.Errorf("database locked")

	recorder, body := ts.request(t, http.MethodGet, "/emails", "")

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "could not list emails", body["detail"])
}

func TestPredict(t *testing.T) {
	ts := newTestServer()
	ts.scorer.score = 0.93

	recorder, body := ts.request(t, http.MethodPost, "/predict", `{"text":"Your account will be SUSPENDED, visit http://evil.example/login"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Phishing (Confidence: 93.00%)", body["prediction"])
	assert.Equal(t, 0.93, body["score"])

	// The scorer sees normalized text
	require.Len(t, ts.scorer.scored, 1)
	assert.NotContains(t, ts.scorer.scored[0], "http")
	assert.Contains(t, ts.scorer.scored[0], "suspended")
}

func TestPredictLegitimate(t *testing.T) {
	ts := newTestServer()
	ts.scorer.score = 0.12

	recorder, body := ts.request(t, http.MethodPost, "/predict", `{"text":"see you at lunch"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Legitimate (Confidence: 88.00%)", body["prediction"])
}

func TestPredictValidation(t *testing.T) {
	ts := newTestServer()

	recorder, body := ts.request(t, http.MethodPost, "/predict", `{}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "text is required", body["detail"])
	assert.Empty(t, ts.scorer.scored)
}

func TestPredictScorerFailure(t *testing.T) {
	ts := newTestServer()
	ts.scorer.err = fmt.Errorf("model unavailable")

	recorder, body := ts.request(t, http.MethodPost, "/predict", `{"text":"anything"}`)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "could not score text", body["detail"])
}

func TestCheckURL(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.URLStatus
		expected string
	}{
		{"phishing", domain.URLPhishing, "Phishing URL detected"},
		{"legitimate", domain.URLLegitimate, "Legitimate URL"},
		{"lookup failure", domain.URLError, "Error checking URL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer()
			ts.checker.status = tc.status

			recorder, body := ts.request(t, http.MethodPost, "/check-url", `{"url":"http://evil.example/login"}`)

			require.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, tc.expected, body["result"])
		})
	}
}

func TestCheckURLValidation(t *testing.T) {
	ts := newTestServer()

	recorder, body := ts.request(t, http.MethodPost, "/check-url", `{}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "url is required", body["detail"])
}

func TestVerifyEmail(t *testing.T) {
	ts := newTestServer()

	recorder, body := ts.request(t, http.MethodPost, "/emails/42/verify", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Email verified", body["message"])
	assert.Equal(t, domain.StatusVerified, ts.store.statusUpdates[42])
}

func TestVerifyEmailUnknownId(t *testing.T) {
	ts := newTestServer()
	ts.store.updateErr = fmt.Errorf("unexpected number of affected rows, expected 1 got 0")

	recorder, body := ts.request(t, http.MethodPost, "/emails/42/verify", "")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "email not found", body["detail"])
}

func TestVerifyEmailInvalidId(t *testing.T) {
	ts := newTestServer()

	recorder, body := ts.request(t, http.MethodPost, "/emails/notanumber/verify", "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "id must be numeric", body["detail"])
	assert.Empty(t, ts.store.statusUpdates)
}

func TestSaveEmail(t *testing.T) {
	ts := newTestServer()
	subscriber := &fakeSubscriber{}
	ts.hub.Add(subscriber)

	recorder, body := ts.request(t, http.MethodPost, "/save_email",
		`{"uid":"1017","sender":"attacker@evil.example","subject":"Action required","body":"account suspended","confidence":0.93,"urls":["http://evil.example/login"]}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Email saved successfully", body["message"])

	require.Len(t, ts.store.inserted, 1)
	assert.Equal(t, "1017", ts.store.inserted[0].Uid)
	assert.Equal(t, domain.StatusUnverified, ts.store.inserted[0].Status)

	require.Len(t, subscriber.received, 1)
	assert.Equal(t, domain.EventNewEmail, subscriber.received[0].Type)
	assert.Equal(t, []string{"http://evil.example/login"}, subscriber.received[0].Email.URLs)
}

func TestSaveEmailDuplicate(t *testing.T) {
	ts := newTestServer()
	ts.store.duplicate = true
	subscriber := &fakeSubscriber{}
	ts.hub.Add(subscriber)

	recorder, body := ts.request(t, http.MethodPost, "/save_email", `{"uid":"1017"}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Email already exists", body["detail"])
	assert.Empty(t, subscriber.received)
}

func TestSaveEmailValidation(t *testing.T) {
	ts := newTestServer()

	recorder, body := ts.request(t, http.MethodPost, "/save_email", `{"sender":"x@y.example"}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "uid is required", body["detail"])
}

func TestSaveEmailStoreFailure(t *testing.T) {
	ts := newTestServer()
	ts.store.insertErr = fmt.Errorf("disk full")

	recorder, body := ts.request(t, http.MethodPost, "/save_email", `{"uid":"1017"}`)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "could not save email", body["detail"])
}
