package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/mnuddindev/cookpulse/pkg/logger"
	"gopkg.in/gomail.v2"
)

// EmailConfig holds SMTP and app settings, passed in from app config
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	AppURL       string
	FromEmail    string
}

// Enabled reports whether an SMTP host is configured.
func (c EmailConfig) Enabled() bool {
	return c.SMTPHost != ""
}

// ChallengeCompletedMail builds the congratulation message sent when a user completes a challenge.
func ChallengeCompletedMail(config EmailConfig, email, username, challenge string, points int) *gomail.Message {
	leaderboard := fmt.Sprintf("%s/leaderboard", config.AppURL)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Challenge complete</title></head>
<body style="font-family: Arial, sans-serif; background-color: #fdf6ec; color: #333;">
    <div style="max-width: 600px; margin: 40px auto; background: #fff; border-radius: 8px; padding: 30px;">
        <h1 style="color: #d35400;">Nice cooking, %s!</h1>
        <p>You completed <strong>%s</strong> and earned <strong>%d points</strong>.</p>
        <p><a href="%s" style="color: #d35400;">See where you stand on the leaderboard</a></p>
        <p style="font-size: 12px; color: #777;">&copy; %d CookPulse</p>
    </div>
</body>
</html>
`, username, challenge, points, leaderboard, time.Now().Year())

	textBody := fmt.Sprintf(`
Nice cooking, %s!

You completed %s and earned %d points.

Leaderboard: %s

© %d CookPulse
`, username, challenge, points, leaderboard, time.Now().Year())

	msg := gomail.NewMessage()
	msg.SetHeader("From", config.FromEmail)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", fmt.Sprintf("You completed %s", challenge))
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)
	return msg
}

// SendChallengeCompletedEmail mails the completion notice. Delivery failures are logged and returned.
func SendChallengeCompletedEmail(ctx context.Context, config EmailConfig, email, username, challenge string, points int, log *logger.Logger) error {
	if !config.Enabled() {
		return nil
	}
	msg := ChallengeCompletedMail(config, email, username, challenge, points)

	dialer := gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUsername, config.SMTPPassword)
	if err := dialer.DialAndSend(msg); err != nil {
		log.Warn(ctx).WithError(err).WithMeta(Map{"email": email}).Logs("Failed to send challenge email")
		return WrapError(err, ErrInternalServerError.Code, "mail_failed")
	}

	log.Info(ctx).WithMeta(Map{"email": email}).Logs("Challenge email sent")
	return nil
}
