// Package notify posts job and validation summaries to Slack: routine
// summaries to the info channel, failures to the error channel.
package notify

import (
	"fmt"
	"os"

	"github.com/slack-go/slack"
)

type Notifier struct {
	client       *slack.Client
	infoChannel  string
	errorChannel string
}

// New builds a notifier from config values, falling back to the SLACK_*
// environment variables for anything unset so ad hoc CLI runs can notify
// without a config file. Returns nil when no token is available; a nil
// Notifier is safe to use and drops every message.
func New(token, infoChannel, errorChannel string) *Notifier {
	if token == "" {
		token = os.Getenv("SLACK_BOT_TOKEN")
	}
	if infoChannel == "" {
		infoChannel = os.Getenv("SLACK_INFO_CHANNEL")
	}
	if errorChannel == "" {
		errorChannel = os.Getenv("SLACK_ERROR_CHANNEL")
	}
	if token == "" {
		return nil
	}
	return &Notifier{
		client:       slack.New(token),
		infoChannel:  infoChannel,
		errorChannel: errorChannel,
	}
}

func (n *Notifier) post(channelID, message string) error {
	if n == nil || channelID == "" {
		return nil
	}
	_, _, err := n.client.PostMessage(
		channelID,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post to slack channel %s: %w", channelID, err)
	}
	return nil
}

func (n *Notifier) Info(message string) error {
	return n.post(n.infoChannel, message)
}

func (n *Notifier) Error(message string) error {
	return n.post(n.errorChannel, message)
}
