package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dxbfab/site/internal/db"
	"github.com/dxbfab/site/internal/division"
	"github.com/dxbfab/site/internal/logging"
	"github.com/dxbfab/site/internal/mail"
	"github.com/dxbfab/site/internal/validation"
)

// ContactInput is the public contact form payload. WebsiteURL is the honeypot
// and must stay empty.
type ContactInput struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Company    string `json:"company" validate:"max=100"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Phone      string `json:"phone" validate:"omitempty,max=30,phone"`
	Division   string `json:"division" validate:"omitempty,division"`
	Message    string `json:"message" validate:"required,min=10,max=5000"`
	WebsiteURL string `json:"website_url"`
}

// ContactMeta is what the transport knows about the sender.
type ContactMeta struct {
	ClientIP  string
	UserAgent string
}

// ContactResult describes how a submission was handled.
type ContactResult struct {
	Submission *db.ContactSubmission
	// Absorbed is set when the honeypot tripped; nothing was stored or sent.
	Absorbed bool
	Notified bool
}

// ContactFilter describes filters for the admin inbox.
type ContactFilter struct {
	Division string
	Search   string
	Page     int
	PerPage  int
}

// ContactListResult aggregates paginated submissions.
type ContactListResult struct {
	Items      []db.ContactSubmission
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// ContactNotifyConfig addresses the notification email.
type ContactNotifyConfig struct {
	From     string
	NotifyTo []string
}

// ContactService validates, stores and forwards contact submissions.
type ContactService struct {
	db        *gorm.DB
	sender    mail.Sender
	settings  *SystemSettingService
	validator *validation.Validator
	notify    ContactNotifyConfig
	policy    *bluemonday.Policy
	logger    *zap.Logger
	now       func() time.Time
}

// NewContactService creates a ContactService. settings may be nil, in which
// case the configured recipients are always used.
func NewContactService(gdb *gorm.DB, sender mail.Sender, settings *SystemSettingService, v *validation.Validator, notify ContactNotifyConfig, logger *zap.Logger) *ContactService {
	if v == nil {
		v = validation.New()
	}
	return &ContactService{
		db:        gdb,
		sender:    sender,
		settings:  settings,
		validator: v,
		notify:    notify,
		policy:    bluemonday.UGCPolicy(),
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

// Submit runs the honeypot check, schema validation, persistence and
// notification in that order. Validation failures return *validation.Error.
// A failed notification is logged and does not fail the submission.
func (s *ContactService) Submit(ctx context.Context, input ContactInput, meta ContactMeta) (ContactResult, error) {
	if input.WebsiteURL != "" {
		s.logger.Info("contact honeypot tripped", zap.String("client_ip", meta.ClientIP))
		return ContactResult{Absorbed: true}, nil
	}

	input = trimContactInput(input)
	if err := s.validator.Struct(input); err != nil {
		return ContactResult{}, err
	}

	submission := db.ContactSubmission{
		Reference: ulid.Make().String(),
		Name:      input.Name,
		Company:   input.Company,
		Email:     strings.ToLower(input.Email),
		Phone:     input.Phone,
		Division:  input.Division,
		Message:   input.Message,
		ClientIP:  meta.ClientIP,
		UserAgent: truncate(meta.UserAgent, 255),
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&submission).Error; err != nil {
		return ContactResult{}, fmt.Errorf("store contact submission: %w", err)
	}

	result := ContactResult{Submission: &submission}
	if err := s.sendNotification(ctx, &submission); err != nil {
		s.logger.Error("contact notification failed",
			zap.String("reference", submission.Reference),
			zap.Error(err),
		)
		return result, nil
	}

	if err := s.db.WithContext(ctx).Model(&submission).Update("notified", true).Error; err != nil {
		s.logger.Warn("mark contact notified failed",
			zap.String("reference", submission.Reference),
			zap.Error(err),
		)
	} else {
		submission.Notified = true
	}
	result.Notified = true
	return result, nil
}

// List returns submissions newest first.
func (s *ContactService) List(filter ContactFilter) (ContactListResult, error) {
	result := ContactListResult{
		Page:    normalizePage(filter.Page),
		PerPage: normalizePerPage(filter.PerPage, 20),
	}

	query := s.db.Model(&db.ContactSubmission{})
	if raw := strings.TrimSpace(filter.Division); raw != "" {
		div, err := division.Parse(raw)
		if err != nil {
			return result, ErrInvalidDivision
		}
		query = query.Where("division = ?", string(div))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR email LIKE ? OR company LIKE ? OR message LIKE ?", like, like, like, like)
	}

	if err := query.Count(&result.Total).Error; err != nil {
		return result, err
	}
	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)

	if err := query.Order("created_at desc").Order("id desc").
		Limit(result.PerPage).
		Offset((result.Page - 1) * result.PerPage).
		Find(&result.Items).Error; err != nil {
		return result, err
	}
	return result, nil
}

func (s *ContactService) sendNotification(ctx context.Context, sub *db.ContactSubmission) error {
	if s.sender == nil {
		return errors.New("no mail sender configured")
	}

	siteName := DefaultSiteName
	recipients := s.notify.NotifyTo
	if s.settings != nil {
		if settings, err := s.settings.GetSettings(); err != nil {
			s.logger.Warn("load settings for contact notification", zap.Error(err))
		} else {
			siteName = settings.SiteName
			if settings.ContactNotifyEmail != "" {
				recipients = []string{settings.ContactNotifyEmail}
			}
		}
	}

	text := contactMarkdown(sub)
	html, err := s.renderHTML(text)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("[%s] New enquiry from %s", siteName, sub.Name)
	if info, ok := division.Lookup(division.Division(sub.Division)); ok {
		subject = fmt.Sprintf("[%s] New %s enquiry from %s", siteName, strings.ToLower(info.Label), sub.Name)
	}

	tags := map[string]string{"type": "contact"}
	if sub.Division != "" {
		tags["division"] = sub.Division
	}

	return s.sender.Send(ctx, mail.Message{
		From:    s.notify.From,
		To:      recipients,
		ReplyTo: sub.Email,
		Subject: subject,
		Text:    text,
		HTML:    html,
		Tags:    tags,
	})
}

func (s *ContactService) renderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return s.policy.Sanitize(buf.String()), nil
}

func contactMarkdown(sub *db.ContactSubmission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## New enquiry from %s\n\n", escapeMarkdown(sub.Name))
	fmt.Fprintf(&b, "- **Reference:** %s\n", sub.Reference)
	fmt.Fprintf(&b, "- **Email:** %s\n", escapeMarkdown(sub.Email))
	if sub.Company != "" {
		fmt.Fprintf(&b, "- **Company:** %s\n", escapeMarkdown(sub.Company))
	}
	if sub.Phone != "" {
		fmt.Fprintf(&b, "- **Phone:** %s\n", escapeMarkdown(sub.Phone))
	}
	if info, ok := division.Lookup(division.Division(sub.Division)); ok {
		fmt.Fprintf(&b, "- **Division:** %s\n", info.Label)
	}
	fmt.Fprintf(&b, "- **Received:** %s\n\n", sub.CreatedAt.Format(time.RFC1123))
	b.WriteString("---\n\n")
	for _, line := range strings.Split(sub.Message, "\n") {
		b.WriteString("> ")
		b.WriteString(escapeMarkdown(line))
		b.WriteString("\n")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func trimContactInput(in ContactInput) ContactInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Company = strings.TrimSpace(in.Company)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Division = strings.ToLower(strings.TrimSpace(in.Division))
	in.Message = strings.TrimSpace(in.Message)
	return in
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
