package smtptest

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/shineum/dispatch/internal/parser"
)

type sessionState int

const (
	stateConnected sessionState = iota
	stateGreeted
	stateAuthenticated
	stateMail
	stateRcpt
)

const (
	idleTimeout    = 30 * time.Second
	maxMessageSize = 10 * 1024 * 1024
)

// session drives the SMTP state machine for one client connection.
type session struct {
	srv    *Server
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	state  sessionState
	secure bool

	from string
	to   []string
}

func newSession(srv *Server, conn net.Conn) *session {
	_, secure := conn.(*tls.Conn)
	return &session{
		srv:    srv,
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		secure: secure,
	}
}

func (s *session) handle() {
	defer s.conn.Close()

	s.reply("220 localhost ESMTP capture")
	for {
		if err := s.conn.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}
		line, err := s.readLine()
		if err != nil {
			if err != io.EOF {
				slog.Debug("capture session read error", "error", err)
			}
			return
		}
		if line == "" {
			continue
		}

		verb, arg, _ := strings.Cut(line, " ")
		if s.dispatch(strings.ToUpper(verb), arg) {
			return
		}
	}
}

// dispatch runs one command and reports whether the session is over.
func (s *session) dispatch(verb, arg string) bool {
	switch verb {
	case "EHLO", "HELO":
		s.hello(verb, arg)
	case "STARTTLS":
		s.startTLS()
	case "AUTH":
		s.auth(arg)
	case "MAIL":
		s.mail(arg)
	case "RCPT":
		s.rcpt(arg)
	case "DATA":
		s.data()
	case "RSET":
		s.reset()
		s.reply("250 OK")
	case "NOOP":
		s.reply("250 OK")
	case "QUIT":
		s.reply("221 Bye")
		return true
	default:
		s.reply("500 Unrecognized command")
	}
	return false
}

func (s *session) hello(verb, arg string) {
	if arg == "" {
		s.reply("501 Syntax: %s hostname", verb)
		return
	}
	s.state = stateGreeted
	if verb == "HELO" {
		s.reply("250 localhost Hello %s", arg)
		return
	}

	s.reply("250-localhost Hello %s", arg)
	if s.srv.tls != nil && !s.secure {
		s.reply("250-STARTTLS")
	}
	if s.srv.creds.enabled() {
		s.reply("250-AUTH PLAIN LOGIN")
	}
	s.reply("250 SIZE %d", maxMessageSize)
}

func (s *session) startTLS() {
	if s.srv.tls == nil || s.secure {
		s.reply("454 TLS not available")
		return
	}
	s.reply("220 Ready to start TLS")

	conn := tls.Server(s.conn, s.srv.tls)
	if err := conn.Handshake(); err != nil {
		slog.Debug("capture session TLS handshake failed", "error", err)
		return
	}
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.writer = bufio.NewWriter(conn)
	s.secure = true
	s.state = stateConnected
}

func (s *session) auth(arg string) {
	if s.state < stateGreeted {
		s.reply("503 Send EHLO/HELO first")
		return
	}
	if !s.srv.creds.enabled() {
		s.reply("503 AUTH not available")
		return
	}

	mechanism, initial, _ := strings.Cut(arg, " ")
	var err error
	switch strings.ToUpper(mechanism) {
	case "PLAIN":
		if initial == "" {
			s.reply("334 ")
			if initial, err = s.readLine(); err != nil {
				return
			}
		}
		if initial == "*" {
			s.reply("501 Authentication cancelled")
			return
		}
		err = s.srv.creds.checkPlain(initial)
	case "LOGIN":
		var user, pass string
		s.reply("334 VXNlcm5hbWU6")
		if user, err = s.readLine(); err != nil {
			return
		}
		s.reply("334 UGFzc3dvcmQ6")
		if pass, err = s.readLine(); err != nil {
			return
		}
		err = s.srv.creds.checkLogin(user, pass)
	default:
		s.reply("504 Unrecognized authentication type")
		return
	}

	if err != nil {
		s.reply("535 Authentication failed")
		return
	}
	s.srv.authenticated()
	s.state = stateAuthenticated
	s.reply("235 Authentication successful")
}

func (s *session) mail(arg string) {
	if s.state < stateGreeted {
		s.reply("503 Send EHLO/HELO first")
		return
	}
	if s.srv.creds.enabled() && s.state < stateAuthenticated {
		s.reply("530 Authentication required")
		return
	}
	addr, ok := pathArg(arg, "FROM:")
	if !ok {
		s.reply("501 Syntax: MAIL FROM:<address>")
		return
	}

	s.from = addr
	s.to = nil
	s.state = stateMail
	s.reply("250 OK")
}

func (s *session) rcpt(arg string) {
	if s.state < stateMail {
		s.reply("503 Send MAIL FROM first")
		return
	}
	addr, ok := pathArg(arg, "TO:")
	if !ok || addr == "" {
		s.reply("501 Syntax: RCPT TO:<address>")
		return
	}
	if s.srv.rejects(addr) {
		s.reply("550 Mailbox unavailable: %s", addr)
		return
	}

	s.to = append(s.to, addr)
	s.state = stateRcpt
	s.reply("250 OK")
}

func (s *session) data() {
	if s.state < stateRcpt {
		s.reply("503 Send RCPT TO first")
		return
	}
	s.reply("354 Start mail input; end with <CRLF>.<CRLF>")

	var raw bytes.Buffer
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			slog.Debug("capture session DATA read error", "error", err)
			return
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "." {
			break
		}
		if strings.HasPrefix(trimmed, ".") {
			line = line[1:]
		}
		raw.WriteString(line)
	}

	msg, err := parser.Parse(raw.Bytes())
	if err != nil {
		slog.Debug("capture session parse failed", "error", err)
		s.reply("554 Message could not be parsed")
		s.reset()
		return
	}

	s.srv.record(Envelope{From: s.from, To: s.to, Raw: raw.Bytes(), Message: msg})
	s.reply("250 OK message accepted")
	s.reset()
}

// reset clears the transaction, keeping greeting and authentication.
func (s *session) reset() {
	s.from = ""
	s.to = nil
	if s.state > stateAuthenticated {
		s.state = stateAuthenticated
		if !s.srv.creds.enabled() {
			s.state = stateGreeted
		}
	}
}

func (s *session) readLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *session) reply(format string, args ...any) {
	fmt.Fprintf(s.writer, format+"\r\n", args...)
	if err := s.writer.Flush(); err != nil {
		slog.Debug("capture session write failed", "error", err)
	}
}

// pathArg extracts the address from "FROM:<addr> PARAMS" style arguments.
func pathArg(arg, prefix string) (string, bool) {
	if !strings.HasPrefix(strings.ToUpper(arg), prefix) {
		return "", false
	}
	rest := strings.TrimSpace(arg[len(prefix):])
	if strings.HasPrefix(rest, "<") {
		end := strings.Index(rest, ">")
		if end < 0 {
			return "", false
		}
		return rest[1:end], true
	}
	addr, _, _ := strings.Cut(rest, " ")
	return addr, true
}
