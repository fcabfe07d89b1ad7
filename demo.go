package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"dev.httpmq.broker/pkg/sdk/go/httpmq"
)

// Demo exercises a running broker end to end: register, subscribe,
// publish, receive, acknowledge, unsubscribe. Point it at an instance
// with -server and watch the log.
type Demo struct {
	client *httpmq.Client
	logger *logrus.Logger
	topic  string
}

// NewDemo creates a demo against the given broker URL
func NewDemo(serverURL, topic string) *Demo {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	return &Demo{
		client: httpmq.NewClient(httpmq.ClientConfig{
			BaseURL: serverURL,
			Timeout: 10 * time.Second,
		}),
		logger: logger,
		topic:  topic,
	}
}

// Run walks through the full message lifecycle once
func (d *Demo) Run(ctx context.Context) error {
	sessionID, err := d.client.Register(ctx)
	if err != nil {
		return err
	}
	d.logger.WithField("session_id", sessionID).Info("Registered session")

	if err := d.client.Subscribe(ctx, d.topic); err != nil {
		return err
	}
	d.logger.WithField("topic", d.topic).Info("Subscribed")

	if _, err := d.client.PublishWithTTL(ctx, d.topic, "Hello World!", 300); err != nil {
		return err
	}
	if _, err := d.client.PublishWithTTL(ctx, d.topic, "Hello!", 60); err != nil {
		return err
	}
	d.logger.Info("Published two messages")

	messages, err := d.client.Receive(ctx)
	if err != nil {
		return err
	}
	d.logger.WithField("count", len(messages)).Info("Received messages")

	for _, msg := range messages {
		if err := d.client.Acknowledge(ctx, msg.Topic, msg.MessageID); err != nil {
			return err
		}
		d.logger.WithFields(logrus.Fields{
			"message_id": msg.MessageID,
			"data":       string(msg.Data),
		}).Info("Acknowledged")
	}

	if err := d.client.Unsubscribe(ctx, d.topic); err != nil {
		return err
	}
	d.logger.Info("Unsubscribed, demo complete")
	return nil
}

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:8080", "broker base URL")
	topic := flag.String("topic", "demo/hello", "topic to publish on")
	flag.Parse()

	demo := NewDemo(*serverURL, *topic)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := demo.Run(ctx); err != nil {
		demo.logger.WithError(err).Fatal("Demo failed")
	}
}
