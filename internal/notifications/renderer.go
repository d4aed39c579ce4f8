package notifications

import (
	"fmt"
	"strings"

	"github.com/hrops/casetrack/internal/cases"
)

var subjects = map[cases.NotificationKind]string{
	cases.KindNoticeIssued:             "A written notice has been issued to you",
	cases.KindApprovalRequested:        "Your approval is requested",
	cases.KindAcknowledgementRequested: "A decision awaits your acknowledgement",
}

// render produces the plain-text subject and body for one notification.
func render(kind cases.NotificationKind, recipientName, message, link string) (string, string) {
	subject, ok := subjects[kind]
	if !ok {
		subject = "CaseTrack notification"
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", recipientName)
	body.WriteString(message)
	body.WriteString("\n")
	if link != "" {
		fmt.Fprintf(&body, "\nOpen the case: %s\n", link)
	}
	body.WriteString("\nThis is an automated message; replies are not monitored.\n")

	return subject, body.String()
}
