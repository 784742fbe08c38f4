package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/qacenter/qacenter/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type sendgridService struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService sends through the Sendgrid v3 API. host overrides the API host (eg: in tests).
func NewSendgridService(conf *core.Config, host ...string) *sendgridService {
	svc := &sendgridService{
		key:        conf.SendgridApiKey,
		host:       sendgridHost,
		from:       sgEmail(conf.DefaultFrom()),
		subjPrefix: subjectPrefix(conf),
	}
	if len(host) > 0 && host[0] != "" {
		svc.host = host[0]
	}
	return svc
}

// SendMessages posts one API request per message.
func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) error {
	return deliver(messages, svc.send)
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc *sendgridService) build(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, addr := range msg.To {
		p.AddTos(sgEmail(addr))
	}
	for _, addr := range msg.Cc {
		p.AddCCs(sgEmail(addr))
	}
	for _, addr := range msg.Bcc {
		p.AddBCCs(sgEmail(addr))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func (svc *sendgridService) send(msg core.EmailMessage) error {
	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, svc.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.build(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return errors.Wrap(err, "calling sendgrid")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.New(fmt.Sprintf("sendgrid rejected email %q: status %d: %s", msg.Subject, res.StatusCode, res.Body))
	}
	return nil
}
