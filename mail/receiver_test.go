package mail_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/goliatone/go-authkit/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainMessage = "From: Alice <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Hello\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hi Bob\r\n"

const multipartMessage = "From: Carol <carol@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Report\r\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<p>numbers</p>\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"numbers\r\n" +
	"--XYZ--\r\n"

type fakeClient struct {
	loginErr  error
	selectErr error
	searchErr error
	fetchErr  error
	storeErr  error

	seqNums  []uint32
	messages []*imap.Message

	username  string
	mailbox   string
	readOnly  bool
	criteria  *imap.SearchCriteria
	fetched   bool
	items     []imap.FetchItem
	stored    *imap.SeqSet
	storeItem imap.StoreItem
	loggedOut bool
}

func (f *fakeClient) Login(username, password string) error {
	f.username = username
	return f.loginErr
}

func (f *fakeClient) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	f.mailbox = name
	f.readOnly = readOnly
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return imap.NewMailboxStatus(name, nil), nil
}

func (f *fakeClient) Search(criteria *imap.SearchCriteria) ([]uint32, error) {
	f.criteria = criteria
	return f.seqNums, f.searchErr
}

func (f *fakeClient) Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	f.fetched = true
	f.items = items
	for _, msg := range f.messages {
		ch <- msg
	}
	return f.fetchErr
}

func (f *fakeClient) UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error {
	f.stored = seqset
	f.storeItem = item
	return f.storeErr
}

func (f *fakeClient) Logout() error {
	f.loggedOut = true
	return nil
}

func newIMAPMessage(seq uint32, raw string, flags ...string) *imap.Message {
	msg := imap.NewMessage(seq, nil)
	msg.Uid = seq + 100
	msg.Flags = flags
	msg.Body[&imap.BodySectionName{}] = bytes.NewBufferString(raw)
	return msg
}

func session() mail.SessionConfig {
	return mail.SessionConfig{
		Name:     "support",
		Host:     "imap.example.com",
		Port:     993,
		Username: "support@example.com",
		Password: "secret",
	}
}

func dialer(c *fakeClient) mail.DialFunc {
	return func(mail.SessionConfig) (mail.Client, error) {
		return c, nil
	}
}

func TestReceiverEmails(t *testing.T) {
	fake := &fakeClient{
		seqNums: []uint32{1, 2},
		messages: []*imap.Message{
			newIMAPMessage(1, plainMessage),
			newIMAPMessage(2, multipartMessage),
		},
	}

	receiver := mail.NewReceiver(session(), mail.WithDialer(dialer(fake)))

	messages, err := receiver.Emails(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "Hello", messages[0].Subject)
	assert.Equal(t, []string{"alice@example.com"}, messages[0].From)
	assert.Equal(t, "Hi Bob\r\n", messages[0].Body)
	assert.Equal(t, 2006, messages[0].Date.Year())
	assert.Equal(t, uint32(101), messages[0].UID)
	assert.True(t, messages[0].Seen)

	assert.Equal(t, "Report", messages[1].Subject)
	assert.Equal(t, "numbers", messages[1].Body)

	assert.Equal(t, "support@example.com", fake.username)
	assert.Equal(t, mail.DefaultMailbox, fake.mailbox)
	assert.False(t, fake.readOnly)
	assert.Equal(t, []string{imap.SeenFlag}, fake.criteria.WithoutFlags)
	assert.True(t, fake.loggedOut)

	assert.Contains(t, fake.items, imap.FetchItem("BODY.PEEK[]"), "fetching must not flag messages")
	require.NotNil(t, fake.stored)
	assert.Equal(t, "101:102", fake.stored.String())
	assert.Equal(t, imap.FormatFlagsOp(imap.AddFlags, true), fake.storeItem)
}

type brokenLiteral struct{}

func (brokenLiteral) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
func (brokenLiteral) Len() int                 { return 64 }

func TestReceiverFailedBatchFlagsNothing(t *testing.T) {
	broken := imap.NewMessage(2, nil)
	broken.Uid = 102
	broken.Body[&imap.BodySectionName{}] = brokenLiteral{}

	fake := &fakeClient{
		seqNums:  []uint32{1, 2},
		messages: []*imap.Message{newIMAPMessage(1, plainMessage), broken},
	}

	receiver := mail.NewReceiver(session(), mail.WithDialer(dialer(fake)))

	messages, err := receiver.Emails(context.Background())
	require.Error(t, err)
	assert.True(t, mail.IsIOError(err))
	assert.Nil(t, messages)
	assert.Nil(t, fake.stored, "no message may be flagged when the batch fails")
}

func TestReceiverStoreFailureIsAnIOError(t *testing.T) {
	fake := &fakeClient{
		seqNums:  []uint32{1},
		messages: []*imap.Message{newIMAPMessage(1, plainMessage)},
		storeErr: errors.New("read only"),
	}

	receiver := mail.NewReceiver(session(), mail.WithDialer(dialer(fake)))

	messages, err := receiver.Emails(context.Background())
	require.Error(t, err)
	assert.True(t, mail.IsIOError(err))
	assert.Nil(t, messages)
}

func TestReceiverWithoutMarkSeenOpensReadOnly(t *testing.T) {
	fake := &fakeClient{
		seqNums:  []uint32{1},
		messages: []*imap.Message{newIMAPMessage(1, plainMessage)},
	}

	receiver := mail.NewReceiver(session(), mail.WithDialer(dialer(fake)), mail.WithMarkSeen(false))

	messages, err := receiver.Emails(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)

	assert.True(t, fake.readOnly)
	assert.False(t, messages[0].Seen)
	assert.Nil(t, fake.stored)
}

func TestReceiverEmptyMailbox(t *testing.T) {
	fake := &fakeClient{}
	receiver := mail.NewReceiver(session(), mail.WithDialer(dialer(fake)))

	messages, err := receiver.Emails(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.False(t, fake.fetched)
}

func TestReceiverErrorKinds(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		dial   mail.DialFunc
		client *fakeClient
		check  func(error) bool
	}{
		{
			name: "dial failure is a connection error",
			dial: func(mail.SessionConfig) (mail.Client, error) {
				return nil, boom
			},
			check: mail.IsConnectionError,
		},
		{
			name:   "login failure is a connection error",
			client: &fakeClient{loginErr: boom},
			check:  mail.IsConnectionError,
		},
		{
			name:   "select failure is a connection error",
			client: &fakeClient{selectErr: boom},
			check:  mail.IsConnectionError,
		},
		{
			name:   "search failure is an io error",
			client: &fakeClient{searchErr: boom},
			check:  mail.IsIOError,
		},
		{
			name: "fetch failure is an io error",
			client: &fakeClient{
				seqNums:  []uint32{1},
				messages: []*imap.Message{newIMAPMessage(1, plainMessage)},
				fetchErr: boom,
			},
			check: mail.IsIOError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dial := tt.dial
			if dial == nil {
				dial = dialer(tt.client)
			}

			receiver := mail.NewReceiver(session(), mail.WithDialer(dial))
			messages, err := receiver.Emails(context.Background())

			require.Error(t, err)
			assert.Nil(t, messages, "no partial results")
			assert.True(t, tt.check(err))
			assert.False(t, mail.IsLookupError(err))
		})
	}
}

func TestReceiverCanceledContext(t *testing.T) {
	fake := &fakeClient{}
	receiver := mail.NewReceiver(session(), mail.WithDialer(dialer(fake)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := receiver.Emails(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.username)
}
