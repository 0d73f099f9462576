// Package relay is the email relay: it accepts messages over HTTP and
// delivers them through SMTP with a few retries.
package relay

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/gomail.v2"

	"nongxian/apperr"
	"nongxian/mailer"
	"nongxian/metrics"
	"nongxian/utils"
)

const (
	MaxRecipients    = 100
	MaxSubjectLength = 250
	MaxBodyLength    = 1_000_000

	DefaultRetries = 3

	maxAttachmentSize = 10 << 20
)

// Dialer delivers rendered messages; *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Relay struct {
	dialer  Dialer
	from    mailer.Address
	fetch   *http.Client
	retries int
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
}

type Option func(*Relay)

func WithRetries(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.retries = n
		}
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Relay) { r.sleep = sleep }
}

// WithHTTPClient sets the client used to download URL attachments.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Relay) { r.fetch = c }
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// New builds a relay sending through dialer. from is used when a message
// names no sender.
func New(dialer Dialer, from mailer.Address, opts ...Option) *Relay {
	r := &Relay{
		dialer:  dialer,
		from:    from,
		fetch:   &http.Client{Timeout: 20 * time.Second},
		retries: DefaultRetries,
		sleep:   sleepCtx,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Validate applies the relay's limits. It trims recipients in place.
func Validate(msg *mailer.Message) error {
	to := msg.To[:0]
	for _, addr := range msg.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	msg.To = to

	if len(msg.To) == 0 {
		return apperr.ValidationError("缺少收件人")
	}
	if len(msg.To) > MaxRecipients {
		return apperr.ValidationError(fmt.Sprintf("收件人數量不可超過 %d", MaxRecipients))
	}
	for _, addr := range msg.To {
		if !utils.IsValidEmail(addr) {
			return apperr.ValidationError(fmt.Sprintf("收件人 Email 格式錯誤：%s", addr))
		}
	}
	if msg.From != nil && msg.From.Email != "" && !utils.IsValidEmail(msg.From.Email) {
		return apperr.ValidationError("寄件人 Email 格式錯誤")
	}

	msg.Subject = strings.TrimSpace(msg.Subject)
	if msg.Subject == "" {
		return apperr.ValidationError("缺少郵件主旨")
	}
	if utf8.RuneCountInString(msg.Subject) > MaxSubjectLength {
		return apperr.ValidationError(fmt.Sprintf("郵件主旨不可超過 %d 個字元", MaxSubjectLength))
	}
	if msg.HTMLContent == "" && msg.TextContent == "" {
		return apperr.ValidationError("缺少郵件內容")
	}
	if len(msg.HTMLContent)+len(msg.TextContent) > MaxBodyLength {
		return apperr.ValidationError("郵件內容過長")
	}
	for _, a := range msg.Attachments {
		if a.Filename == "" {
			return apperr.ValidationError("附件缺少檔名")
		}
		if a.URL == "" && a.Content == "" {
			return apperr.ValidationError(fmt.Sprintf("附件 %s 缺少內容", a.Filename))
		}
	}
	return nil
}

func (r *Relay) attachmentData(ctx context.Context, a mailer.Attachment) ([]byte, string, error) {
	if a.Content != "" {
		data, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return nil, "", apperr.New(apperr.Validation, fmt.Sprintf("附件 %s 不是有效的 base64", a.Filename), err)
		}
		return data, a.MimeType, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return nil, "", apperr.New(apperr.Validation, fmt.Sprintf("附件 %s 網址錯誤", a.Filename), err)
	}
	resp, err := r.fetch.Do(req)
	if err != nil {
		return nil, "", apperr.TransportError(fmt.Sprintf("無法下載附件 %s", a.Filename), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", apperr.TransportError(fmt.Sprintf("無法下載附件 %s", a.Filename), fmt.Errorf("%s: %s", a.URL, resp.Status))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize))
	if err != nil {
		return nil, "", apperr.TransportError(fmt.Sprintf("無法下載附件 %s", a.Filename), err)
	}
	mimeType := a.MimeType
	if mimeType == "" {
		mimeType = resp.Header.Get("Content-Type")
	}
	return data, mimeType, nil
}

func (r *Relay) build(ctx context.Context, msg mailer.Message, id string) (*gomail.Message, error) {
	from := r.from
	if msg.From != nil && msg.From.Email != "" {
		from = *msg.From
	}

	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	m.SetAddressHeader("From", from.Email, from.Name)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", "<"+id+">")
	switch {
	case msg.TextContent != "" && msg.HTMLContent != "":
		m.SetBody("text/plain", msg.TextContent)
		m.AddAlternative("text/html", msg.HTMLContent)
	case msg.HTMLContent != "":
		m.SetBody("text/html", msg.HTMLContent)
	default:
		m.SetBody("text/plain", msg.TextContent)
	}

	for _, a := range msg.Attachments {
		data, mimeType, err := r.attachmentData(ctx, a)
		if err != nil {
			return nil, err
		}
		if mimeType == "" {
			mimeType = mime.TypeByExtension(path.Ext(a.Filename))
		}
		settings := []gomail.FileSetting{gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		})}
		if mimeType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {mimeType}}))
		}
		m.Attach(a.Filename, settings...)
	}
	return m, nil
}

// Send validates and delivers msg, trying up to the configured number of
// times and waiting one second times the attempt number in between.
func (r *Relay) Send(ctx context.Context, msg mailer.Message) (mailer.SendResult, error) {
	if err := Validate(&msg); err != nil {
		metrics.RecordRelayDelivery("rejected")
		return mailer.SendResult{}, err
	}

	id := utils.GetUUID() + "@nongxian.relay"
	m, err := r.build(ctx, msg, id)
	if err != nil {
		metrics.RecordRelayDelivery("rejected")
		return mailer.SendResult{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= r.retries; attempt++ {
		lastErr = r.dialer.DialAndSend(m)
		if lastErr == nil {
			metrics.RecordRelayDelivery("sent")
			log.Printf("relay: sent %s to %d recipient(s) on attempt %d", id, len(msg.To), attempt)
			return mailer.SendResult{
				MessageID: id,
				To:        msg.To,
				Subject:   msg.Subject,
				SentAt:    r.now(),
				Attempts:  attempt,
			}, nil
		}
		log.Printf("relay: attempt %d/%d for %s failed: %v", attempt, r.retries, id, lastErr)
		if attempt < r.retries {
			if err := r.sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
				lastErr = err
				break
			}
		}
	}
	metrics.RecordRelayDelivery("failed")
	return mailer.SendResult{}, apperr.TransportError(fmt.Sprintf("郵件寄送失敗（已嘗試 %d 次）", r.retries), lastErr)
}
