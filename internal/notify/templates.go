package notify

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"heyu/internal/models"
)

type emailView struct {
	BookingID  string
	Service    string
	Date       string
	Time       string
	Duration   string
	Price      string
	Name       string
	WechatName string
	Phone      string
	Email      string
	Wechat     string
}

func newEmailView(b models.Booking) emailView {
	return emailView{
		BookingID:  orNA(b.BookingID),
		Service:    b.Service.NameCn + " | " + b.Service.NameEn,
		Date:       LongDate(b.SelectedDate),
		Time:       Clock12(b.SelectedTime),
		Duration:   orNA(b.Service.Duration),
		Price:      orNA(b.Service.Price),
		Name:       orNA(b.Name),
		WechatName: orNA(b.WechatName),
		Phone:      orNA(b.Phone),
		Email:      orNA(b.Email),
		Wechat:     b.Wechat,
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// LongDate formats 2025-03-04 as "Tuesday, March 4, 2025".
func LongDate(date string) string {
	d, err := time.Parse(models.DateLayout, models.DateOnly(date))
	if err != nil {
		return date
	}
	return d.Format("Monday, January 2, 2006")
}

// Clock12 formats 18:00 as "6:00 PM".
func Clock12(slot string) string {
	hh, mm, ok := strings.Cut(slot, ":")
	if !ok {
		return slot
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return slot
	}
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	switch {
	case hour > 12:
		hour -= 12
	case hour == 0:
		hour = 12
	}
	return fmt.Sprintf("%d:%s %s", hour, mm, ampm)
}

const layoutHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f5f5f5; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; background-color: #ffffff; }
.header { text-align: center; margin-bottom: 30px; padding-bottom: 20px; border-bottom: 2px solid #e5e5e5; }
.logo { font-size: 28px; font-weight: bold; color: #2c2c2c; margin-bottom: 10px; }
.content { background-color: #f8f8f8; padding: 25px; border-radius: 8px; margin-bottom: 20px; }
.badge { background-color: #10b981; color: white; padding: 8px 16px; border-radius: 20px; display: inline-block; font-size: 14px; font-weight: 600; }
.detail-item { margin-bottom: 15px; padding-bottom: 15px; border-bottom: 1px solid #e5e5e5; }
.label { font-weight: 600; color: #666; font-size: 14px; margin-bottom: 5px; }
.value { color: #2c2c2c; font-size: 16px; }
.booking-id { background-color: #e5e5e5; padding: 10px; border-radius: 4px; font-family: monospace; font-size: 12px; color: #666; }
.note { background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin-top: 20px; border-radius: 4px; }
.footer { margin-top: 30px; text-align: center; font-size: 12px; color: #999; padding-top: 20px; border-top: 1px solid #e5e5e5; }
</style>
</head>`

const detailsBlock = `{{define "details"}}
<div class="detail-item"><div class="label">Booking ID</div><div class="booking-id">{{.BookingID}}</div></div>
<div class="detail-item"><div class="label">Service</div><div class="value">{{.Service}}</div></div>
<div class="detail-item"><div class="label">Date</div><div class="value">{{.Date}}</div></div>
<div class="detail-item"><div class="label">Time</div><div class="value">{{.Time}}</div></div>
<div class="detail-item"><div class="label">Duration</div><div class="value">{{.Duration}}</div></div>
<div class="detail-item"><div class="label">Price</div><div class="value">{{.Price}}</div></div>
<div class="detail-item"><div class="label">Name</div><div class="value">{{.Name}}</div></div>
<div class="detail-item"><div class="label">WeChat Name</div><div class="value">{{.WechatName}}</div></div>
<div class="detail-item"><div class="label">Phone</div><div class="value">{{.Phone}}</div></div>
<div class="detail-item"><div class="label">Email</div><div class="value">{{.Email}}</div></div>
{{if .Wechat}}<div class="detail-item"><div class="label">WeChat ID</div><div class="value">{{.Wechat}}</div></div>{{end}}
{{end}}`

const footer = `<div class="footer"><p>HeyU 禾屿 - Professional Nail Services</p><p>This is an automated email, please do not reply.</p></div>`

var confirmationTmpl = template.Must(template.New("confirmation").Parse(detailsBlock + layoutHead + `
<body>
<div class="container">
<div class="header"><div class="logo">HeyU 禾屿</div><div class="badge">✓ Booking Confirmed</div></div>
<div class="content">
<h2>Booking Confirmation</h2>
<p>Thank you for choosing HeyU 禾屿! Your booking has been successfully confirmed.</p>
{{template "details" .}}
<div class="note"><strong>Important:</strong> We will contact you 24 hours before your appointment via phone or email to confirm.<br>
If you have any questions, please feel free to contact us.</div>
</div>
` + footer + `
</div>
</body>
</html>`))

var reminderTmpl = template.Must(template.New("reminder").Parse(detailsBlock + layoutHead + `
<body>
<div class="container">
<div class="header"><div class="logo">HeyU 禾屿</div><div class="badge">Appointment Reminder</div></div>
<div class="content">
<h2>See you soon</h2>
<p>This is a friendly reminder that your appointment at HeyU 禾屿 is coming up.</p>
{{template "details" .}}
<div class="note">If you need to reschedule, please contact us as soon as possible.</div>
</div>
` + footer + `
</div>
</body>
</html>`))
