// Package smtptest runs an in-process SMTP server that records every message
// it accepts. It speaks enough ESMTP (STARTTLS, AUTH PLAIN/LOGIN, SIZE) to
// exercise the SMTP provider end to end.
package smtptest

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"

	"github.com/shineum/dispatch/internal/email"
	dtls "github.com/shineum/dispatch/internal/tls"
)

// Options configures a Server.
type Options struct {
	// Username and Password enable AUTH and make it mandatory before MAIL.
	Username string
	Password string

	// TLS enables STARTTLS, or wraps the listener when ImplicitTLS is set.
	// When nil a self-signed localhost identity is generated.
	TLS         *tls.Config
	ImplicitTLS bool
	DisableTLS  bool

	// RejectRecipients lists addresses answered with 550 at RCPT.
	RejectRecipients []string
}

// Envelope is one accepted message with its SMTP envelope.
type Envelope struct {
	From    string
	To      []string
	Raw     []byte
	Message *email.Message
}

// Server is a capture server listening on a loopback port.
type Server struct {
	// Identity is the generated certificate, nil when Options.TLS was given
	// or TLS is disabled.
	Identity *dtls.Identity

	opts     Options
	tls      *tls.Config
	creds    credentials
	listener net.Listener

	wg       sync.WaitGroup
	mu       sync.Mutex
	messages []Envelope
	auths    int
}

// Start listens on 127.0.0.1 on a random port and serves until Close.
func Start(opts Options) (*Server, error) {
	s := &Server{
		opts:  opts,
		creds: credentials{username: opts.Username, password: opts.Password},
	}

	if !opts.DisableTLS {
		s.tls = opts.TLS
		if s.tls == nil {
			id, err := dtls.SelfSigned()
			if err != nil {
				return nil, err
			}
			s.Identity = id
			s.tls = id.ServerConfig()
		}
	}
	if opts.ImplicitTLS && s.tls == nil {
		return nil, errors.New("implicit TLS requires a TLS configuration")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	if opts.ImplicitTLS {
		ln = tls.NewListener(ln, s.tls)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Debug("capture server accept error", "error", err)
			}
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			newSession(s, conn).handle()
		}()
	}
}

// Close stops the listener and waits for open sessions to finish.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

// Addr returns host:port of the listener.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Port returns the listening port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Messages returns a copy of the accepted messages in arrival order.
func (s *Server) Messages() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Auths returns how many successful AUTH exchanges the server has seen.
func (s *Server) Auths() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auths
}

func (s *Server) record(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, env)
}

func (s *Server) authenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auths++
}

func (s *Server) rejects(addr string) bool {
	return slices.Contains(s.opts.RejectRecipients, addr)
}
