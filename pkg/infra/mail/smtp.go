package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/model"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP delivers messages to an SMTP relay
type SMTP struct {
	host     string
	port     int
	username string
	password string
	sendMail sendMailFunc
}

var _ interfaces.MailSender = (*SMTP)(nil)

// NewSMTP creates an SMTP sender. PLAIN auth is used when username is set.
func NewSMTP(host string, port int, username, password string) (*SMTP, error) {
	if host == "" {
		return nil, goerr.New("smtp host is required", goerr.T(types.ErrTagInvalidArgument))
	}
	if port <= 0 {
		return nil, goerr.New("smtp port is required", goerr.V("port", port), goerr.T(types.ErrTagInvalidArgument))
	}

	return &SMTP{
		host:     host,
		port:     port,
		username: username,
		password: password,
		sendMail: smtp.SendMail,
	}, nil
}

// Send implements interfaces.MailSender
func (x *SMTP) Send(ctx context.Context, msg *model.EmailMessage) error {
	if len(msg.To) == 0 {
		return goerr.New("no recipient", goerr.V("message_id", msg.ID), goerr.T(types.ErrTagInvalidArgument))
	}

	data, err := BuildMessage(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if x.username != "" {
		auth = smtp.PlainAuth("", x.username, x.password, x.host)
	}

	addr := net.JoinHostPort(x.host, strconv.Itoa(x.port))
	if err := x.sendMail(addr, auth, msg.From, msg.To, data); err != nil {
		return goerr.Wrap(err, "failed to send email",
			goerr.V("addr", addr),
			goerr.V("message_id", msg.ID),
		)
	}
	return nil
}

// BuildMessage encodes msg as a multipart/alternative RFC 5322 message
func BuildMessage(msg *model.EmailMessage) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writePart(mw, "text/plain; charset=utf-8", msg.TextBody); err != nil {
		return nil, err
	}
	if msg.HTMLBody != "" {
		if err := writePart(mw, "text/html; charset=utf-8", msg.HTMLBody); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to close multipart writer")
	}

	date := msg.CreatedAt
	if date.IsZero() {
		date = time.Now()
	}

	var out bytes.Buffer
	writeHeader(&out, "From", msg.From)
	writeHeader(&out, "To", strings.Join(msg.To, ", "))
	writeHeader(&out, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader(&out, "Date", date.Format(time.RFC1123Z))
	if msg.ID != "" {
		writeHeader(&out, "Message-ID", fmt.Sprintf("<%s@%s>", msg.ID, types.ServiceName))
	}

	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeHeader(&out, k, mime.QEncoding.Encode("utf-8", msg.Headers[k]))
	}

	writeHeader(&out, "MIME-Version", "1.0")
	writeHeader(&out, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary()))
	out.WriteString("\r\n")
	out.Write(body.Bytes())

	return out.Bytes(), nil
}

var headerSanitizer = strings.NewReplacer("\r", "", "\n", "")

func writeHeader(out *bytes.Buffer, key, value string) {
	out.WriteString(headerSanitizer.Replace(key))
	out.WriteString(": ")
	out.WriteString(headerSanitizer.Replace(value))
	out.WriteString("\r\n")
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	pw, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to create mime part", goerr.V("content_type", contentType))
	}

	qp := quotedprintable.NewWriter(pw)
	if _, err := qp.Write([]byte(content)); err != nil {
		return goerr.Wrap(err, "failed to write mime part", goerr.V("content_type", contentType))
	}
	if err := qp.Close(); err != nil {
		return goerr.Wrap(err, "failed to flush mime part", goerr.V("content_type", contentType))
	}
	return nil
}
