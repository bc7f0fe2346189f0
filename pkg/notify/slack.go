// Package notify 负责把需要人工介入的工单通知给支持团队。
package notify

import (
	"context"
	"fmt"
	"strings"

	"helpdesk-go/internal/config"
	"helpdesk-go/internal/model"
	"helpdesk-go/pkg/log"

	"github.com/slack-go/slack"
)

// Notifier 发送工单升级通知。
type Notifier interface {
	Escalated(ctx context.Context, ticket *model.Ticket, reason string) error
}

// NewNotifier 根据配置返回 Slack 通知器；未配置 Token 时返回只写日志的实现。
func NewNotifier(cfg config.SlackConfig) Notifier {
	if strings.TrimSpace(cfg.Token) == "" || cfg.Channel == "" {
		return logNotifier{}
	}
	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimRight(cfg.APIURL, "/")+"/"))
	}
	return &slackNotifier{api: slack.New(cfg.Token, opts...), channel: cfg.Channel}
}

type slackNotifier struct {
	api     *slack.Client
	channel string
}

func (n *slackNotifier) Escalated(ctx context.Context, ticket *model.Ticket, reason string) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(escalationText(ticket, reason), false))
	if err != nil {
		return fmt.Errorf("发送 Slack 通知失败: %w", err)
	}
	log.Infof("[Notifier] 已发送工单升级通知, ticketID: %d", ticket.ID)
	return nil
}

type logNotifier struct{}

func (logNotifier) Escalated(ctx context.Context, ticket *model.Ticket, reason string) error {
	log.Infow("[Notifier] 工单需要人工支持", "ticketID", ticket.ID, "priority", ticket.Priority, "reason", reason)
	return nil
}

func escalationText(t *model.Ticket, reason string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ":rotating_light: Ticket #%d needs human support (%s)\n", t.ID, reason)
	fmt.Fprintf(&sb, "Priority: %s | Category: %s", t.Priority, orDash(t.Category))
	if t.Subject != "" {
		fmt.Fprintf(&sb, "\nSubject: %s", t.Subject)
	}
	desc := strings.TrimSpace(strings.TrimPrefix(t.Description, model.EscalationNote))
	if len([]rune(desc)) > 300 {
		desc = string([]rune(desc)[:300]) + "..."
	}
	fmt.Fprintf(&sb, "\n> %s", desc)
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
