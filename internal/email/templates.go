package email

import (
	"log"
	"strings"
	"text/template"
)

// Template values are sanitized before rendering, so text/template is used
// deliberately: html/template would escape the already-escaped content a
// second time.
type templateVars struct {
	VisitorName    string
	VisitorEmail   string
	Timestamp      string
	MessageContent string
	DashboardLink  string
	SessionID      int64
	MessageID      int64
}

var adminNotificationHTML = template.Must(template.New("admin-notification-html").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <h2>New chat message</h2>
    <p><strong>{{.VisitorName}}</strong> ({{.VisitorEmail}}) wrote at {{.Timestamp}}:</p>
    <blockquote style="border-left: 3px solid #ccc; margin: 1em 0; padding: 0.5em 1em; background: #f9f9f9;">
      {{.MessageContent}}
    </blockquote>
    <p><a href="{{.DashboardLink}}">Open session {{.SessionID}} in the dashboard</a></p>
    <p style="color: #888; font-size: 12px;">Message #{{.MessageID}} &middot; session #{{.SessionID}}</p>
  </body>
</html>
`))

var adminNotificationText = template.Must(template.New("admin-notification-text").Parse(`New chat message

From: {{.VisitorName}} ({{.VisitorEmail}})
At: {{.Timestamp}}

{{.MessageContent}}

Open the session: {{.DashboardLink}}
Message #{{.MessageID}}, session #{{.SessionID}}
`))

func renderTemplate(tmpl *template.Template, vars templateVars) string {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, vars); err != nil {
		log.Printf("email: render %s: %v", tmpl.Name(), err)
		return ""
	}
	return buf.String()
}
