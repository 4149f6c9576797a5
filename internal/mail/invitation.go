package mail

import "fmt"

// InvitationSubject is the subject line for invite emails.
const InvitationSubject = "You're invited to our wedding!"

// InvitationHTML renders the invite email body. The link points at the
// guest's personalized invitation page.
func InvitationHTML(names, link string) string {
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Wedding Invitation</title>
  </head>
  <body style="margin:0;padding:0;">
    <table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%%" style="padding:32px 12px;">
      <tr>
        <td align="center">
          <table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%%" style="max-width:700px;">
            <tr>
              <td style="padding:32px 32px 8px;font-family:system-ui,-apple-system,Segoe UI,Roboto,Helvetica,Arial,sans-serif;text-align:center;">
                <p style="margin:0 0 20px;font-size:16px;line-height:1.6;">Hello %s!</p>
                <p style="margin:0 0 20px;font-size:16px;line-height:1.6;">&#128155; We're so excited to invite you to our wedding. &#128155;</p>
                <p style="margin:0 0 20px;font-size:16px;line-height:1.6;">Please click the button below to view your invitation.</p>
              </td>
            </tr>
            <tr>
              <td align="center" style="padding:0 32px 30px;">
                <a href="%s" style="background-color:#f8af63;color:#000000;display:inline-block;font-family:system-ui,-apple-system,Segoe UI,Roboto,Helvetica,Arial,sans-serif;font-size:16px;font-weight:bold;line-height:50px;text-align:center;text-decoration:none;width:170px;max-width:90%%;">View Invitation</a>
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>`, names, link)
}

// InvitationText is the plain-text alternative for clients that do not
// render HTML.
func InvitationText(names, link string) string {
	return fmt.Sprintf("Hello %s!\n\nWe're so excited to invite you to our wedding.\n\nView your invitation: %s\n", names, link)
}
