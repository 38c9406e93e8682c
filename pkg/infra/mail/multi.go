package mail

import (
	"context"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
)

// Multi sends a message through every sender in order and stops at the first
// failure
type Multi []interfaces.MailSender

var _ interfaces.MailSender = Multi(nil)

// Send implements interfaces.MailSender
func (x Multi) Send(ctx context.Context, msg *model.EmailMessage) error {
	for _, s := range x {
		if err := s.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
