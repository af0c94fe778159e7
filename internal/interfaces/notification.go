package interfaces

import "context"

// NotificationChannel delivers a rendered markdown report
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, subject string, markdown string) error
}

// MailSender sends a prebuilt email
type MailSender interface {
	SendHTMLEmail(ctx context.Context, to []string, subject, htmlBody, textBody string) error
	IsConfigured() bool
}

// SchedulerService runs registered jobs on cron schedules
type SchedulerService interface {
	RegisterJob(name string, schedule string, handler func() error) error
	Start() error
	Stop() error
	IsRunning() bool
}
