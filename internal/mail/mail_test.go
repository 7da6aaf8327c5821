package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

func TestResendSenderPostsMessage(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	sender := NewResendSender(srv.URL+"/", "re_test", srv.Client())
	err := sender.Send(context.Background(), Message{
		From:    "site@example.ae",
		To:      []string{"ops@example.ae"},
		ReplyTo: "client@example.com",
		Subject: "New enquiry",
		Text:    "hello",
		Tags:    map[string]string{"division": "retail"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, []string{"ops@example.ae"}, got.To)
	assert.Equal(t, "client@example.com", got.ReplyTo)
	assert.Equal(t, []resendTag{{Name: "division", Value: "retail"}}, got.Tags)
}

func TestResendSenderReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	err := NewResendSender(srv.URL, "k", nil).Send(context.Background(), Message{From: "a@b.c", To: []string{"x@y.z"}, Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from")
}

func TestSendersRejectEmptyRecipients(t *testing.T) {
	senders := []Sender{
		NewLogSender(nil),
		NewResendSender("", "k", nil),
		NewSMTPSender("localhost", 0, "", ""),
	}
	for _, s := range senders {
		err := s.Send(context.Background(), Message{From: "a@b.c"})
		assert.True(t, errors.Is(err, ErrNoRecipients), "%T", s)
	}
}

type recordingDialer struct {
	sent []*gomail.Message
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return nil
}

func TestSMTPSenderBuildsHeaders(t *testing.T) {
	d := &recordingDialer{}
	sender := &SMTPSender{dialer: d}

	err := sender.Send(context.Background(), Message{
		From:    "site@example.ae",
		To:      []string{"ops@example.ae", "sales@example.ae"},
		ReplyTo: "client@example.com",
		Subject: "Enquiry",
		Text:    "plain",
		HTML:    "<p>plain</p>",
	})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"ops@example.ae", "sales@example.ae"}, m.GetHeader("To"))
	assert.Equal(t, []string{"client@example.com"}, m.GetHeader("Reply-To"))
	assert.Equal(t, []string{"Enquiry"}, m.GetHeader("Subject"))
}

func TestNewSelectsProvider(t *testing.T) {
	s, err := New(Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	_, err = New(Config{Provider: "smtp"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Provider: "resend"}, nil)
	assert.Error(t, err)

	s, err = New(Config{Provider: "resend", ResendAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ResendSender{}, s)

	_, err = New(Config{Provider: "pigeon"}, nil)
	assert.Error(t, err)
}
