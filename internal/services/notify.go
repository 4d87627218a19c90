package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"inkblog/internal/config"
	"inkblog/internal/metrics"
	"inkblog/internal/models"

	"github.com/rs/zerolog"
)

//go:embed mail/*.tmpl
var mailTemplates embed.FS

// RecipientRole is why a recipient gets a notification.
type RecipientRole string

const (
	RoleTargetAuthor RecipientRole = "author"
	RoleCommenter    RecipientRole = "commenter"
	RoleParentAuthor RecipientRole = "parent"
)

// Recipient is one planned notification.
type Recipient struct {
	Role  RecipientRole
	Email string
	Name  string
}

// PlanNotifications decides who hears about a new comment. Each address is
// notified at most once; the target author outranks the commenter, who
// outranks the parent comment's author. targetAuthor and parentAuthor may
// be nil.
func PlanNotifications(commenter, targetAuthor, parentAuthor *models.User) []Recipient {
	var plan []Recipient
	seen := map[string]bool{}

	add := func(role RecipientRole, u *models.User) {
		plan = append(plan, Recipient{Role: role, Email: u.Email, Name: u.Username})
		seen[emailKey(u.Email)] = true
	}

	commenterEmail := ""
	if commenter != nil {
		commenterEmail = emailKey(commenter.Email)
	}

	if targetAuthor != nil && emailKey(targetAuthor.Email) != "" && emailKey(targetAuthor.Email) != commenterEmail {
		add(RoleTargetAuthor, targetAuthor)
	}
	if commenterEmail != "" && !seen[commenterEmail] {
		add(RoleCommenter, commenter)
	}
	if parentAuthor != nil {
		key := emailKey(parentAuthor.Email)
		if key != "" && !seen[key] {
			add(RoleParentAuthor, parentAuthor)
		}
	}
	return plan
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CommentEvent describes a freshly created comment.
type CommentEvent struct {
	Comment   *models.Comment
	Commenter *models.User
	Target    Commentable
	// Parent is set for replies, with its User loaded.
	Parent *models.Comment
}

// CommentNotifier reacts to comment creation. It must not block on delivery.
type CommentNotifier interface {
	CommentCreated(ctx context.Context, ev CommentEvent)
}

// Notifier 评论邮件通知，异步发送，失败只记录日志
type Notifier struct {
	mailer   Mailer
	site     config.SiteConfig
	tmpl     *template.Template
	log      zerolog.Logger
	timeout  time.Duration
	inflight sync.WaitGroup
}

func NewNotifier(mailer Mailer, site config.SiteConfig, log zerolog.Logger) (*Notifier, error) {
	tmpl, err := template.ParseFS(mailTemplates, "mail/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Notifier{
		mailer:  mailer,
		site:    site,
		tmpl:    tmpl,
		log:     log.With().Str("component", "notifier").Logger(),
		timeout: 30 * time.Second,
	}, nil
}

type message struct {
	to      string
	role    RecipientRole
	subject string
	body    string
}

// CommentCreated renders the notifications now and delivers them in the background.
func (n *Notifier) CommentCreated(ctx context.Context, ev CommentEvent) {
	msgs, err := n.render(ev)
	if err != nil {
		n.log.Error().Err(err).Uint("comment_id", ev.Comment.ID).Msg("Failed to render comment notifications")
		return
	}
	if len(msgs) == 0 {
		return
	}

	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		for _, m := range msgs {
			n.deliver(sendCtx, m)
		}
	}()
}

// Wait blocks until every dispatched notification finished.
func (n *Notifier) Wait() {
	n.inflight.Wait()
}

func (n *Notifier) deliver(ctx context.Context, m message) {
	err := n.mailer.Send(ctx, m.to, m.subject, m.body)
	switch {
	case err == nil:
		metrics.CommentNotifications.WithLabelValues(string(m.role), "sent").Inc()
	case errors.Is(err, ErrMailDisabled):
		metrics.CommentNotifications.WithLabelValues(string(m.role), "disabled").Inc()
		n.log.Debug().Str("to", m.to).Msg("Mail disabled, notification dropped")
	default:
		metrics.CommentNotifications.WithLabelValues(string(m.role), "failed").Inc()
		n.log.Warn().Err(err).Str("to", m.to).Str("role", string(m.role)).Msg("Failed to send comment notification")
	}
}

func (n *Notifier) render(ev CommentEvent) ([]message, error) {
	var targetAuthor, parentAuthor *models.User
	if ev.Target != nil {
		targetAuthor = ev.Target.TargetAuthor()
	}
	if ev.Parent != nil {
		parentAuthor = &ev.Parent.User
	}

	plan := PlanNotifications(ev.Commenter, targetAuthor, parentAuthor)
	if len(plan) == 0 {
		return nil, nil
	}

	link := strings.TrimRight(n.site.URL, "/") + ev.Target.TargetURL() + fmt.Sprintf("#comment-%d", ev.Comment.ID)
	title := ev.Target.TargetTitle()

	msgs := make([]message, 0, len(plan))
	for _, r := range plan {
		data := map[string]string{
			"Recipient": r.Name,
			"Commenter": ev.Commenter.Username,
			"Title":     title,
			"Content":   ev.Comment.Content,
			"Link":      link,
			"Site":      n.site.Name,
		}

		var name, subject string
		switch r.Role {
		case RoleTargetAuthor:
			name = "new_comment.tmpl"
			subject = fmt.Sprintf("[%s] New comment on \"%s\"", n.site.Name, title)
		case RoleCommenter:
			name = "comment_received.tmpl"
			subject = fmt.Sprintf("[%s] Your comment on \"%s\" was received", n.site.Name, title)
		case RoleParentAuthor:
			name = "reply.tmpl"
			subject = fmt.Sprintf("[%s] %s replied to your comment", n.site.Name, ev.Commenter.Username)
			data["Original"] = ev.Parent.Content
		}

		var buf bytes.Buffer
		if err := n.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
			return nil, fmt.Errorf("execute %s: %w", name, err)
		}
		msgs = append(msgs, message{to: r.Email, role: r.Role, subject: subject, body: buf.String()})
	}
	return msgs, nil
}
