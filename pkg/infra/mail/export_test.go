package mail

import "net/smtp"

// SetSendMail replaces the SMTP transport function
func (x *SMTP) SetSendMail(f func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) {
	x.sendMail = f
}
