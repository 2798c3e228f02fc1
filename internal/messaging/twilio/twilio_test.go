package twilio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/url"
	"sort"
	"testing"

	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeAPI struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeAPI) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestSenderSend(t *testing.T) {
	api := &fakeAPI{}
	s := newSender(api, "whatsapp:+14155238886", nil)

	if !s.Send(context.Background(), "+391234", "hello") {
		t.Fatal("Send returned false")
	}
	p := api.params[0]
	if *p.To != "whatsapp:+391234" || *p.From != "whatsapp:+14155238886" || *p.Body != "hello" {
		t.Errorf("params = to %q from %q body %q", *p.To, *p.From, *p.Body)
	}
}

func TestSenderSendFailure(t *testing.T) {
	s := newSender(&fakeAPI{err: errors.New("boom")}, "+1", nil)
	if s.Send(context.Background(), "+2", "hi") {
		t.Fatal("Send should report failure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api := &fakeAPI{}
	s = newSender(api, "+1", nil)
	if s.Send(ctx, "+2", "hi") || len(api.params) != 0 {
		t.Fatal("Send with canceled context should not call the API")
	}
}

func TestParseWebhook(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		wantFrom   string
		wantStatus string
		wantErr    bool
	}{
		{
			name:     "user message",
			form:     url.Values{"From": {"whatsapp:+391234"}, "Body": {"Expense: 5 Other x"}, "SmsStatus": {"received"}},
			wantFrom: "+391234",
		},
		{
			name:       "delivery receipt",
			form:       url.Values{"From": {"whatsapp:+391234"}, "MessageStatus": {"delivered"}},
			wantFrom:   "+391234",
			wantStatus: "delivered",
		},
		{name: "missing from", form: url.Values{"Body": {"hi"}}, wantErr: true},
		{name: "missing body", form: url.Values{"From": {"whatsapp:+1"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseWebhook(tt.form)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingFields) {
					t.Fatalf("err = %v, want ErrMissingFields", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWebhook: %v", err)
			}
			if in.From != tt.wantFrom || in.Status != tt.wantStatus {
				t.Errorf("got from %q status %q", in.From, in.Status)
			}
		})
	}
}

func sign(token, u string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data := u
	for _, k := range keys {
		data += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSignatureValidator(t *testing.T) {
	const token = "secret"
	const u = "https://example.com/webhook/whatsapp"
	form := url.Values{"From": {"whatsapp:+1"}, "Body": {"Expense: 5 Other x"}}
	v := NewSignatureValidator(token)

	if !v.Valid(u, form, sign(token, u, form)) {
		t.Error("valid signature rejected")
	}
	if v.Valid(u, form, sign("other", u, form)) {
		t.Error("signature with wrong token accepted")
	}
	if v.Valid(u, form, "") {
		t.Error("empty signature accepted")
	}
}
