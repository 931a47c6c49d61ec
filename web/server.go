// SPDX-License-Identifier: GPL-3.0-or-later

// Package web exposes the boundary http surface: recent detections, ad-hoc
// prediction and URL checks, external detection submission and the live
// websocket channel.
package web

import (
	"net/http"
	"strconv"

	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"
	"github.com/AkshayRane05/Phishing-Detection-Tool/hub"
	"github.com/AkshayRane05/Phishing-Detection-Tool/log"
	"github.com/AkshayRane05/Phishing-Detection-Tool/normalize"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const recentEmailLimit = 20

type Server struct {
	store      domain.Store
	scorer     domain.Scorer
	urlChecker domain.URLChecker
	hub        *hub.Hub

	engine *gin.Engine
	l      *logrus.Logger
}

func NewServer(store domain.Store, scorer domain.Scorer, urlChecker domain.URLChecker, h *hub.Hub) *Server {
	s := &Server{
		store:      store,
		scorer:     scorer,
		urlChecker: urlChecker,
		hub:        h,
		l:          log.Logger(log.LOG_WEB),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/emails", s.getEmails)
	engine.POST("/emails/:id/verify", s.verifyEmail)
	engine.POST("/predict", s.predict)
	engine.POST("/check-url", s.checkURL)
	engine.POST("/save_email", s.saveEmail)
	engine.GET("/ws", s.serveWs)

	s.engine = engine
	return s
}

func (s *Server) Run(addr string) error {
	s.l.WithField("addr", addr).Info("Serving api")
	return s.engine.Run(addr)
}

type emailWithURLs struct {
	*domain.PhishingEmail
	URLs []*domain.EmailURL `json:"urls"`
}

func (s *Server) getEmails(c *gin.Context) {
	emails, err := s.store.RecentEmails(recentEmailLimit)
	if err != nil {
		s.l.WithField("error", err).Error("Could not list emails")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not list emails"})
		return
	}

	result := make([]*emailWithURLs, 0, len(emails))
	for _, e := range emails {
		urls, err := s.store.URLsForEmail(e.Id)
		if err != nil {
			s.l.WithField("error", err).Error("Could not list urls")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not list emails"})
			return
		}
		result = append(result, &emailWithURLs{PhishingEmail: e, URLs: urls})
	}

	c.JSON(http.StatusOK, result)
}

// verifyEmail marks a detection as reviewed-and-confirmed by an operator.
func (s *Server) verifyEmail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "id must be numeric"})
		return
	}

	err = s.store.UpdateEmailStatus(id, domain.StatusVerified)
	if err != nil {
		s.l.WithFields(logrus.Fields{"id": id, "error": err}).Warn("Could not verify email")
		c.JSON(http.StatusNotFound, gin.H{"detail": "email not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified"})
}

type predictRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) predict(c *gin.Context) {
	req := &predictRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "text is required"})
		return
	}

	score, err := s.scorer.Score(normalize.Clean(req.Text))
	if err != nil {
		s.l.WithField("error", err).Error("Could not score text")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not score text"})
		return
	}

	classification := domain.Classify(score)
	c.JSON(http.StatusOK, gin.H{
		"prediction": classification.Format(),
		"score":      classification.Score,
	})
}

type checkURLRequest struct {
	URL string `json:"url" binding:"required"`
}

func (s *Server) checkURL(c *gin.Context) {
	req := &checkURLRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "url is required"})
		return
	}

	var result string
	switch s.urlChecker.CheckURL(req.URL) {
	case domain.URLPhishing:
		result = "Phishing URL detected"
	case domain.URLLegitimate:
		result = "Legitimate URL"
	default:
		result = "Error checking URL"
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

type saveEmailRequest struct {
	Uid        string   `json:"uid" binding:"required"`
	Sender     string   `json:"sender"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Confidence float64  `json:"confidence"`
	URLs       []string `json:"urls"`
}

// saveEmail lets an external detector submit a detection. It shares the
// pipeline's dedup gateway: a duplicate uid answers 400 and changes nothing.
func (s *Server) saveEmail(c *gin.Context) {
	req := &saveEmailRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "uid is required"})
		return
	}

	checked := make([]domain.CheckedURL, 0, len(req.URLs))
	for _, u := range req.URLs {
		checked = append(checked, domain.CheckedURL{URL: u, Status: domain.URLUnchecked})
	}

	email := &domain.PhishingEmail{
		Uid:        req.Uid,
		Sender:     req.Sender,
		Subject:    req.Subject,
		Body:       req.Body,
		Confidence: req.Confidence,
		Status:     domain.StatusUnverified,
	}

	urls, inserted, err := s.store.InsertDetection(email, checked)
	if err != nil {
		s.l.WithField("error", err).Error("Could not save email")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not save email"})
		return
	}

	if !inserted {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already exists"})
		return
	}

	s.hub.Broadcast(domain.NewEmailEvent(email, urls))
	c.JSON(http.StatusOK, gin.H{"message": "Email saved successfully"})
}

func (s *Server) serveWs(c *gin.Context) {
	err := s.hub.ServeWs(c.Writer, c.Request)
	if err != nil {
		s.l.WithField("error", err).Warn("Could not accept subscriber")
	}
}
