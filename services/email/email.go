// Package emailsvc holds the core.EmailService implementations.
package emailsvc

import (
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core"
)

// deliver renders each message and hands the sendable ones to send, stopping at the first failure.
// Messages without recipients or content are skipped.
func deliver(messages []*core.EmailMessage, send func(msg core.EmailMessage) error) error {
	for i, msg := range messages {
		if err := msg.Render(); err != nil {
			return errors.Wrapf(err, "rendering email %d", i)
		}
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}
		if err := send(*msg); err != nil {
			return err
		}
	}
	return nil
}

func subjectPrefix(conf *core.Config) string {
	return "[" + conf.AppName + "] "
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
