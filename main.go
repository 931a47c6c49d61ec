// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AkshayRane05/Phishing-Detection-Tool/alert"
	"github.com/AkshayRane05/Phishing-Detection-Tool/classifier"
	"github.com/AkshayRane05/Phishing-Detection-Tool/config"
	"github.com/AkshayRane05/Phishing-Detection-Tool/domain"
	"github.com/AkshayRane05/Phishing-Detection-Tool/hub"
	"github.com/AkshayRane05/Phishing-Detection-Tool/imapconnection"
	"github.com/AkshayRane05/Phishing-Detection-Tool/log"
	"github.com/AkshayRane05/Phishing-Detection-Tool/persistence"
	"github.com/AkshayRane05/Phishing-Detection-Tool/pipeline"
	"github.com/AkshayRane05/Phishing-Detection-Tool/urlcheck"
	"github.com/AkshayRane05/Phishing-Detection-Tool/web"

	"github.com/sirupsen/logrus"
)

func main() {
	log.InitLogging("debug")
	logger := log.Logger(log.LOG_MAIN)

	conf, err := config.ReadConfig("config.toml")
	if err != nil {
		logger.WithField("error", err).Fatal("Could not load config")
	}

	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}

	p, err := persistence.NewPersistence(conf.Database)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not connect to database")
	}
	defer p.Close()

	model, err := classifier.Load(conf.ModelPath, conf.VocabPath)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not load model artifacts")
	}

	checker := urlcheck.NewSafeBrowsing(conf.SafeBrowsingEndpoint, conf.SafeBrowsingKey)
	broadcaster := hub.NewHub()

	configs := []pipeline.ConfigFunc{
		pipeline.PollInterval(conf.Poll()),
		pipeline.ReconnectBackoff(conf.Backoff()),
		pipeline.Concurrency(conf.Concurrency),
	}
	if conf.MoveSpam {
		configs = append(configs, pipeline.Quarantine(conf.SpamFolder))
	}
	if conf.AlertingConfigured() {
		logger.WithField("to", conf.AdminPhoneNumber).Info("SMS alerting enabled")
		configs = append(configs, pipeline.Alerts(alert.NewTwilioAlerter(conf.TwilioAccountSid, conf.TwilioAuthToken, conf.TwilioFromNumber, conf.AdminPhoneNumber)))
	}

	pipe, err := pipeline.NewPipeline(
		p,
		model,
		checker,
		broadcaster,
		func() (domain.MailConnector, error) {
			return imapconnection.NewImapConnection(conf.ImapHost, conf.User, conf.Password)
		},
		configs...,
	)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start pipeline")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{"folder": conf.InboxFolder, "interval": conf.Poll(), "quarantine": conf.MoveSpam}).Info("Starting detection pipeline")
	go pipe.Run(ctx, conf.InboxFolder)

	server := web.NewServer(p, model, checker, broadcaster)
	err = server.Run(conf.ListenAddr)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not serve api")
	}
}
