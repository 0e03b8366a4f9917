package mail

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	mailmsg "github.com/emersion/go-message/mail"
	"github.com/goliatone/go-authkit/metrics"
)

// Receiver retrieves the unread messages of a mailbox
type Receiver interface {
	Emails(ctx context.Context) ([]Message, error)
}

// Client is the subset of the IMAP client used by the receiver
type Client interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Search(criteria *imap.SearchCriteria) ([]uint32, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	Logout() error
}

// DialFunc opens an IMAP connection for a session
type DialFunc func(cfg SessionConfig) (Client, error)

// ReceiverOption configures an IMAP receiver
type ReceiverOption func(*imapReceiver)

// WithLogger sets the receiver logger
func WithLogger(logger Logger) ReceiverOption {
	return func(r *imapReceiver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDialer replaces the IMAP dialer
func WithDialer(dial DialFunc) ReceiverOption {
	return func(r *imapReceiver) {
		if dial != nil {
			r.dial = dial
		}
	}
}

// WithMarkSeen controls whether retrieved messages are flagged as seen.
// Flags are only stored once the whole batch was read. When false the
// mailbox is opened read only.
func WithMarkSeen(markSeen bool) ReceiverOption {
	return func(r *imapReceiver) {
		r.markSeen = markSeen
	}
}

type imapReceiver struct {
	session  SessionConfig
	dial     DialFunc
	logger   Logger
	markSeen bool
}

// NewReceiver creates an IMAP receiver for session
func NewReceiver(session SessionConfig, opts ...ReceiverOption) Receiver {
	r := &imapReceiver{
		session:  session,
		dial:     Dial,
		logger:   nopLogger{},
		markSeen: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dial connects to the session host, with TLS when configured
func Dial(cfg SessionConfig) (Client, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var (
		c   *client.Client
		err error
	)
	if cfg.TLS {
		c, err = client.DialTLS(addr, &tls.Config{ServerName: cfg.Host})
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}

	return c, nil
}

// Emails returns the unread messages. Any failure discards the whole batch.
func (r *imapReceiver) Emails(ctx context.Context) ([]Message, error) {
	messages, err := r.emails(ctx)
	if err != nil {
		kind := Kind(err)
		if kind == "" {
			kind = "context"
		}
		metrics.MailErrors.WithLabelValues(r.session.Name, kind).Inc()
		r.logger.Error("mail retrieval failed", "session", r.session.Name, "kind", kind, "error", err)
		return nil, err
	}

	metrics.MailFetched.WithLabelValues(r.session.Name).Add(float64(len(messages)))
	r.logger.Debug("mail retrieved", "session", r.session.Name, "count", len(messages))

	return messages, nil
}

func (r *imapReceiver) emails(ctx context.Context) ([]Message, error) {
	meta := map[string]any{
		"session": r.session.Name,
		"host":    r.session.Host,
		"mailbox": r.session.mailbox(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := r.dial(r.session)
	if err != nil {
		return nil, connectionError(err, "failed to connect to mail server", meta)
	}
	defer func() {
		if err := c.Logout(); err != nil {
			r.logger.Debug("mail logout failed", "session", r.session.Name, "error", err)
		}
	}()

	if err := c.Login(r.session.Username, r.session.Password); err != nil {
		return nil, connectionError(err, "failed to authenticate with mail server", meta)
	}

	if _, err := c.Select(r.session.mailbox(), !r.markSeen); err != nil {
		return nil, connectionError(err, "failed to open mailbox", meta)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, ioError(err, "failed to search mailbox", meta)
	}

	if len(seqNums) == 0 {
		return []Message{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNums...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
		section.FetchItem(),
	}

	ch := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, ch)
	}()

	out := make([]Message, 0, len(seqNums))
	var parseErr error
	for msg := range ch {
		if parseErr != nil {
			continue
		}
		m, err := r.toMessage(msg, section)
		if err != nil {
			parseErr = err
			continue
		}
		out = append(out, m)
	}

	if err := <-done; err != nil {
		return nil, ioError(err, "failed to fetch messages", meta)
	}

	if parseErr != nil {
		return nil, ioError(parseErr, "failed to parse message", meta)
	}

	if r.markSeen {
		if err := markSeen(c, out); err != nil {
			return nil, ioError(err, "failed to flag messages as seen", meta)
		}
	}

	return out, nil
}

func markSeen(c Client, messages []Message) error {
	uids := new(imap.SeqSet)
	for _, m := range messages {
		if m.UID != 0 {
			uids.AddNum(m.UID)
		}
	}

	if uids.Empty() {
		return nil
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(uids, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return err
	}

	for i := range messages {
		messages[i].Seen = true
	}
	return nil
}

func (r *imapReceiver) toMessage(msg *imap.Message, section *imap.BodySectionName) (Message, error) {
	out := Message{
		UID:  msg.Uid,
		Seen: hasFlag(msg.Flags, imap.SeenFlag),
	}

	if env := msg.Envelope; env != nil {
		out.MessageID = env.MessageId
		out.Subject = env.Subject
		out.Date = env.Date
		out.From = addresses(env.From)
		out.To = addresses(env.To)
	}

	literal := msg.GetBody(section)
	if literal == nil {
		return out, nil
	}

	mr, err := mailmsg.CreateReader(literal)
	if err != nil && !message.IsUnknownCharset(err) {
		return Message{}, err
	}

	if subject, err := mr.Header.Subject(); err == nil && subject != "" {
		out.Subject = subject
	}
	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		out.Date = date
	}
	if len(out.From) == 0 {
		if list, err := mr.Header.AddressList("From"); err == nil {
			out.From = mailAddresses(list)
		}
	}

	body, err := readText(mr)
	if err != nil {
		return Message{}, err
	}
	out.Body = body

	return out, nil
}

// readText returns the first text/plain part, or the first inline part
func readText(mr *mailmsg.Reader) (string, error) {
	var fallback string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return fallback, nil
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", err
		}

		h, ok := part.Header.(*mailmsg.InlineHeader)
		if !ok {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return "", err
		}

		contentType, _, _ := h.ContentType()
		if contentType == "" || strings.EqualFold(contentType, "text/plain") {
			return string(data), nil
		}
		if fallback == "" {
			fallback = string(data)
		}
	}
}

func addresses(list []*imap.Address) []string {
	out := make([]string, 0, len(list))
	for _, addr := range list {
		if addr == nil {
			continue
		}
		out = append(out, addr.Address())
	}
	return out
}

func mailAddresses(list []*mailmsg.Address) []string {
	out := make([]string, 0, len(list))
	for _, addr := range list {
		out = append(out, addr.Address)
	}
	return out
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}
