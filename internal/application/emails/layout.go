package emails

import (
	"fmt"
	"strings"
	"time"
)

const (
	themePrimary = "#2563EB"
	themeBgBody  = "#F3F4F6"
)

// EmailLayout wraps content in the shared transactional email shell.
func EmailLayout(contentHTML string) string {
	year := time.Now().Year()
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>VoicePost</title>
  <style>
    body { margin: 0; padding: 0; width: 100%% !important; background-color: %s; -webkit-font-smoothing: antialiased; }
    table { border-collapse: collapse; }
    body, td, p, a, li { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: #1F2937; }
    .content-body p { margin: 0 0 24px 0; font-size: 16px; line-height: 1.6; color: #374151; }
    .content-body h1 { color: #111827; font-size: 24px; margin-top: 0; margin-bottom: 20px; font-weight: 700; }
    .content-body a { color: %s; font-weight: 600; text-decoration: none; }
    .vp-button { display: inline-block; background-color: %s; color: #FFFFFF !important; padding: 12px 24px; border-radius: 8px; font-weight: 600; }
  </style>
</head>
<body>
  <table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding: 32px 16px;">
      <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background: #FFFFFF; border-radius: 12px; padding: 40px;">
        <tr><td class="content-body">
%s
        </td></tr>
      </table>
      <p style="font-size: 12px; color: #9CA3AF; margin-top: 24px;">&copy; %d VoicePost. All rights reserved.</p>
    </td></tr>
  </table>
</body>
</html>`, themeBgBody, themePrimary, themePrimary, contentHTML, year)
}

// EscapeHTML escapes user-provided strings placed into email HTML.
func EscapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	return r.Replace(s)
}
