// Package mailer 邮件发送
//
// 只承载密码找回这一种外发通知。生产环境走 SMTP，
// 开发/测试环境用 LogMailer 把链接打到日志。
package mailer

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
)

// Mailer 邮件发送接口
type Mailer interface {
	// SendPasswordReset 发送密码找回邮件，resetLink 中嵌有明文重置令牌
	SendPasswordReset(ctx context.Context, to, resetLink string) error
}

// Config SMTP 配置
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"-"` // 只从 SMTP_USERNAME 环境变量读取
	Password string `yaml:"-"` // 只从 SMTP_PASSWORD 环境变量读取
	From     string `yaml:"from"`
}

// Enabled 是否配置了 SMTP
func (c Config) Enabled() bool {
	return c.Host != ""
}

// ============================================================================
// SMTPMailer
// ============================================================================

// SMTPMailer 基于 net/smtp 的实现
type SMTPMailer struct {
	cfg Config
}

// NewSMTPMailer 创建 SMTP 邮件发送器
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Reset your Blossom Shop password\r\n\r\n"+
		"We received a request to reset your password.\r\n\r\n"+
		"Open the link below within one hour to choose a new password:\r\n%s\r\n\r\n"+
		"If you did not request this, you can ignore this email.\r\n",
		m.cfg.From, to, resetLink)

	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, a, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send reset mail to %s: %w", to, err)
	}
	return nil
}

// ============================================================================
// LogMailer
// ============================================================================

// LogMailer 把重置链接写入日志（开发环境用，不外发）
type LogMailer struct{}

// NewLogMailer 创建日志邮件发送器
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	log.Printf("[mailer] password reset for %s: %s", to, resetLink)
	return nil
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
