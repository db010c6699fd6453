package service

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"go.uber.org/zap"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/mailer"
)

const decisionTextTemplate = `KBT College of Engineering
Nashik, Maharashtra

Gate Pass Request Notification
------------------------------

Dear Faculty Member,

Your gate pass request (Ref: {{.Ref}}) for {{.Date}} has been {{.Status}} by the college administration.

Request Details:
- Date: {{.Date}}
- Time Out: {{.TimeOut}}
- Time In: {{.TimeIn}}
- Purpose: {{.Purpose}}
- Reason: {{.Reason}}

This request was processed by: {{.DecidedBy}}
Status: {{.StatusTitle}}

Please note that you must present your ID card at the gate when entering/exiting the campus.

For any queries regarding this gate pass, please contact the administration office.

Regards,
Administration Department
KBT College of Engineering
`

const decisionHTMLTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2 style="color: #004080;">KBT College of Engineering &mdash; Gate Pass Request Notification</h2>
  <p>Dear Faculty Member,</p>
  <p>Your gate pass request for <strong>{{.Date}}</strong> has been <strong>{{.Status}}</strong> by the college administration.</p>
  <table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
    <tr><td><strong>Request ID</strong></td><td>{{.Ref}}</td></tr>
    <tr><td><strong>Date</strong></td><td>{{.Date}}</td></tr>
    <tr><td><strong>Time Out</strong></td><td>{{.TimeOut}}</td></tr>
    <tr><td><strong>Time In</strong></td><td>{{.TimeIn}}</td></tr>
    <tr><td><strong>Purpose</strong></td><td>{{.Purpose}}</td></tr>
    <tr><td><strong>Reason</strong></td><td>{{.Reason}}</td></tr>
    <tr><td><strong>Status</strong></td><td>{{.StatusTitle}}</td></tr>
    <tr><td><strong>Processed by</strong></td><td>{{.DecidedBy}}</td></tr>
  </table>
  <p><strong>Important:</strong> Please present your ID card at the gate when entering/exiting the campus.
  This gate pass is valid only for the date and time mentioned above.</p>
  <p>Regards,<br>Administration Department<br>KBT College of Engineering</p>
</body>
</html>
`

type decisionEmailData struct {
	Ref         string
	Date        string
	TimeOut     string
	TimeIn      string
	Purpose     string
	Reason      string
	Status      string
	StatusTitle string
	DecidedBy   string
}

// DecisionNotifier renders and sends decision emails to the request's
// stored submitter address. A single attempt is made per decision; sending
// never sits on the critical path of the decision itself.
type DecisionNotifier struct {
	mailer  mailer.Mailer
	logger  *zap.Logger
	timeout time.Duration

	textTmpl *texttemplate.Template
	htmlTmpl *htmltemplate.Template
}

// NewDecisionNotifier constructs a notifier over the given mailer.
func NewDecisionNotifier(m mailer.Mailer, logger *zap.Logger, timeout time.Duration) *DecisionNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DecisionNotifier{
		mailer:   m,
		logger:   logger,
		timeout:  timeout,
		textTmpl: texttemplate.Must(texttemplate.New("decision_text").Parse(decisionTextTemplate)),
		htmlTmpl: htmltemplate.Must(htmltemplate.New("decision_html").Parse(decisionHTMLTemplate)),
	}
}

// NotifyDecision sends the approval/rejection email for a decided request.
func (n *DecisionNotifier) NotifyDecision(ctx context.Context, req *models.GatePassRequest, decidedBy string) error {
	if n.mailer == nil {
		return fmt.Errorf("no mailer configured")
	}

	data := decisionEmailData{
		Ref:         shortRef(req.ID),
		Date:        prettyDate(req.Date),
		TimeOut:     orNA(req.TimeOut),
		TimeIn:      orNA(req.TimeIn),
		Purpose:     req.Purpose,
		Reason:      req.Reason,
		Status:      string(req.Status),
		StatusTitle: titleStatus(req.Status),
		DecidedBy:   decidedBy,
	}

	var text, html bytes.Buffer
	if err := n.textTmpl.Execute(&text, data); err != nil {
		return fmt.Errorf("render text body: %w", err)
	}
	if err := n.htmlTmpl.Execute(&html, data); err != nil {
		return fmt.Errorf("render html body: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	msg := mailer.Message{
		To:      req.FacultyEmail,
		Subject: fmt.Sprintf("Gate Pass Request %s", data.StatusTitle),
		Text:    text.String(),
		HTML:    html.String(),
	}
	if err := n.mailer.Send(sendCtx, msg); err != nil {
		return err
	}

	n.logger.Info("decision notification sent",
		zap.String("request_id", req.ID),
		zap.String("to", req.FacultyEmail),
		zap.String("status", string(req.Status)),
	)
	return nil
}

func shortRef(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func prettyDate(canonical string) string {
	t, err := time.Parse(models.DateLayout, canonical)
	if err != nil {
		return canonical
	}
	return t.Format("Monday, January 2, 2006")
}

func titleStatus(s models.RequestStatus) string {
	raw := string(s)
	if raw == "" {
		return raw
	}
	return strings.ToUpper(raw[:1]) + raw[1:]
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
