package smtptest

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

const rawMessage = "From: sender@example.com\r\n" +
	"To: ann@example.com\r\n" +
	"Subject: Captured\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"hello\r\n" +
	".leading dot\r\n"

func startServer(t *testing.T, opts Options) *Server {
	t.Helper()
	srv, err := Start(opts)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func dial(t *testing.T, srv *Server) *smtp.Client {
	t.Helper()
	c, err := smtp.Dial(srv.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func trust(srv *Server) *tls.Config {
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(srv.Identity.CertPEM)
	return &tls.Config{ServerName: "127.0.0.1", RootCAs: pool}
}

func send(c *smtp.Client, from string, to []string, body string) error {
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return err
	}
	return w.Close()
}

// loginAuth implements the AUTH LOGIN exchange, which net/smtp lacks.
type loginAuth struct{ user, pass string }

func (a loginAuth) Start(*smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", nil, nil
}

func (a loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch string(fromServer) {
	case "Username:":
		return []byte(a.user), nil
	case "Password:":
		return []byte(a.pass), nil
	}
	return nil, errors.New("unexpected challenge " + string(fromServer))
}

func TestCaptureStartTLSPlain(t *testing.T) {
	t.Parallel()

	srv := startServer(t, Options{Username: "user", Password: "secret"})
	c := dial(t, srv)

	if ok, _ := c.Extension("STARTTLS"); !ok {
		t.Fatal("STARTTLS not advertised")
	}
	if err := c.StartTLS(trust(srv)); err != nil {
		t.Fatalf("StartTLS: %v", err)
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		t.Error("STARTTLS advertised again after upgrade")
	}
	if err := c.Auth(smtp.PlainAuth("", "user", "secret", "127.0.0.1")); err != nil {
		t.Fatalf("Auth: %v", err)
	}
	if err := send(c, "sender@example.com", []string{"ann@example.com", "bcc@example.com"}, rawMessage); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.Quit(); err != nil {
		t.Errorf("Quit: %v", err)
	}

	msgs := srv.Messages()
	if len(msgs) != 1 {
		t.Fatalf("messages: got %d, want 1", len(msgs))
	}
	env := msgs[0]
	if env.From != "sender@example.com" {
		t.Errorf("From: got %q, want %q", env.From, "sender@example.com")
	}
	if strings.Join(env.To, ",") != "ann@example.com,bcc@example.com" {
		t.Errorf("To: got %v", env.To)
	}
	if env.Message.Subject != "Captured" {
		t.Errorf("Subject: got %q, want %q", env.Message.Subject, "Captured")
	}
	if text, _ := env.Message.TextBody(); text != "hello\r\n.leading dot\r\n" {
		t.Errorf("TextBody: got %q", text)
	}
	if srv.Auths() != 1 {
		t.Errorf("Auths: got %d, want 1", srv.Auths())
	}
}

func TestCaptureAuthLogin(t *testing.T) {
	t.Parallel()

	srv := startServer(t, Options{Username: "user", Password: "secret"})
	c := dial(t, srv)
	if err := c.StartTLS(trust(srv)); err != nil {
		t.Fatalf("StartTLS: %v", err)
	}
	if err := c.Auth(loginAuth{"user", "secret"}); err != nil {
		t.Fatalf("Auth: %v", err)
	}
	if srv.Auths() != 1 {
		t.Errorf("Auths: got %d, want 1", srv.Auths())
	}
}

func TestCaptureRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		run  func(c *smtp.Client, srv *Server) error
		code string
	}{
		{
			name: "mail before auth",
			run: func(c *smtp.Client, _ *Server) error {
				return c.Mail("sender@example.com")
			},
			code: "530",
		},
		{
			name: "wrong password",
			run: func(c *smtp.Client, srv *Server) error {
				if err := c.StartTLS(trust(srv)); err != nil {
					return err
				}
				return c.Auth(smtp.PlainAuth("", "user", "wrong", "127.0.0.1"))
			},
			code: "535",
		},
		{
			name: "rejected recipient",
			run: func(c *smtp.Client, srv *Server) error {
				if err := c.StartTLS(trust(srv)); err != nil {
					return err
				}
				if err := c.Auth(smtp.PlainAuth("", "user", "secret", "127.0.0.1")); err != nil {
					return err
				}
				return send(c, "sender@example.com", []string{"bounce@example.com"}, rawMessage)
			},
			code: "550",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := startServer(t, Options{
				Username:         "user",
				Password:         "secret",
				RejectRecipients: []string{"bounce@example.com"},
			})
			err := tt.run(dial(t, srv), srv)
			if err == nil || !strings.Contains(err.Error(), tt.code) {
				t.Errorf("got %v, want %s reply", err, tt.code)
			}
			if len(srv.Messages()) != 0 {
				t.Errorf("messages: got %d, want 0", len(srv.Messages()))
			}
		})
	}
}

func TestCaptureImplicitTLS(t *testing.T) {
	t.Parallel()

	srv := startServer(t, Options{ImplicitTLS: true})

	conn, err := tls.Dial("tcp", srv.Addr(), trust(srv))
	if err != nil {
		t.Fatalf("tls dial: %v", err)
	}
	c, err := smtp.NewClient(conn, "127.0.0.1")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		t.Error("STARTTLS advertised on an implicit TLS connection")
	}
	if err := send(c, "sender@example.com", []string{"ann@example.com"}, rawMessage); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(srv.Messages()) != 1 {
		t.Errorf("messages: got %d, want 1", len(srv.Messages()))
	}
}

func TestCaptureWithoutTLS(t *testing.T) {
	t.Parallel()

	srv := startServer(t, Options{DisableTLS: true})
	if srv.Identity != nil {
		t.Error("Identity: expected nil when TLS is disabled")
	}
	c := dial(t, srv)
	if ok, _ := c.Extension("STARTTLS"); ok {
		t.Error("STARTTLS advertised with TLS disabled")
	}
	if err := send(c, "sender@example.com", []string{"ann@example.com"}, rawMessage); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestPathArg(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg, prefix string
		want        string
		ok          bool
	}{
		{"FROM:<a@example.com>", "FROM:", "a@example.com", true},
		{"from:<a@example.com> BODY=8BITMIME", "FROM:", "a@example.com", true},
		{"TO: b@example.com", "TO:", "b@example.com", true},
		{"FROM:<>", "FROM:", "", true},
		{"FROM:<unterminated", "FROM:", "", false},
		{"TO:<a@example.com>", "FROM:", "", false},
	}

	for _, tt := range tests {
		got, ok := pathArg(tt.arg, tt.prefix)
		if got != tt.want || ok != tt.ok {
			t.Errorf("pathArg(%q): got %q %v, want %q %v", tt.arg, got, ok, tt.want, tt.ok)
		}
	}
}
