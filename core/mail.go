package core

import (
	"bytes"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

const emailTemplatesDir = "templates/email"

// executor is satisfied by both *text/template.Template and *html/template.Template.
type executor interface {
	Execute(w io.Writer, data interface{}) error
}

var (
	templates       map[string]map[string]executor // {name: {ext: template}}
	templatesMu     sync.RWMutex
	frontendBaseURL string
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// ContextData is what templates are executed with.
	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages one after the other and returns the first error.
		SendMessages(messages ...*EmailMessage) error
	}
)

// render executes the message template with the given extension, "" when there is none.
func (m *EmailMessage) render(ext string) (string, error) {
	templatesMu.RLock()
	tmpl, ok := templates[m.TemplateName][ext]
	data := ContextData{FrontendBaseURL: frontendBaseURL, Data: m.TemplateData}
	templatesMu.RUnlock()
	if !ok {
		return "", nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, data); err != nil {
		return "", err
	}
	return buff.String(), nil
}

// Render fills TextContent and HTMLContent. BodyStr, when set, is the text content as is.
func (m *EmailMessage) Render() (err error) {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	} else if m.TemplateName != "" {
		if m.TextContent, err = m.render(".txt"); err != nil {
			return errors.Wrap(err, "rendering text")
		}
	}
	if m.TemplateName != "" {
		if m.HTMLContent, err = m.render(".gohtml"); err != nil {
			return errors.Wrap(err, "rendering html")
		}
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates parses every "<name>.txt" and "<name>.gohtml" under templates/email in fsys,
// each one on top of its "_base" layout. Files starting with "_" are layouts, not messages.
func ParseEmailTemplates(fsys fs.FS, conf *Config, logger Logger) {
	cache := make(map[string]map[string]executor)
	strict := conf.Debug || conf.TestMode

	fps, err := fs.Glob(fsys, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		logger.Error("listing email templates", err)
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		base := path.Join(emailTemplatesDir, "_base"+ext)

		var tmpl executor
		if ext == ".txt" {
			t, pErr := texttmpl.ParseFS(fsys, base, fp)
			if pErr == nil && strict {
				t = t.Option("missingkey=error")
			}
			tmpl, err = t, pErr
		} else {
			t, pErr := htmltmpl.ParseFS(fsys, base, fp)
			if pErr == nil && strict {
				t = t.Option("missingkey=error")
			}
			tmpl, err = t, pErr
		}
		if err != nil {
			logger.Error("parsing email template "+fp, err)
			continue
		}

		name := strings.TrimSuffix(fname, ext)
		if cache[name] == nil {
			cache[name] = make(map[string]executor)
		}
		cache[name][ext] = tmpl
	}

	templatesMu.Lock()
	templates = cache
	frontendBaseURL = strings.TrimSuffix(conf.FrontendBaseURL, "/")
	templatesMu.Unlock()
}
