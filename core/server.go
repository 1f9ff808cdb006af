package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"github.com/juju/ratelimit"
	"go.uber.org/zap"

	"github.com/startterm/startsh/core/config"
	"github.com/startterm/startsh/core/editor"
	"github.com/startterm/startsh/core/engine"
	"github.com/startterm/startsh/core/logger"
	"github.com/startterm/startsh/core/surface"
	"github.com/startterm/startsh/core/ttylog"
	"github.com/startterm/startsh/core/vfs"
)

const (
	msgBusy  = "startsh: another session is active, try again later.\r\n"
	msgNoPty = "startsh: an interactive terminal is required, try ssh -t.\r\n"
)

// Server serves shells over SSH, one session at a time, all over the same
// bookmark tree.
type Server struct {
	configuration *config.Configuration
	provider      *vfs.MemoryProvider
	metrics       *engine.Metrics
	log           *zap.Logger
	sshServer     *ssh.Server

	// active holds a token while a session runs.
	active chan struct{}
}

// NewServer creates an SSH server. metrics may be nil.
func NewServer(configuration *config.Configuration, provider *vfs.MemoryProvider, metrics *engine.Metrics, log *zap.Logger) (*Server, error) {
	server := &Server{
		configuration: configuration,
		provider:      provider,
		metrics:       metrics,
		log:           log,
		active:        make(chan struct{}, 1),
	}

	server.sshServer = &ssh.Server{
		Addr:    fmt.Sprintf(":%d", configuration.SSHPort),
		Banner:  configuration.SSHBanner,
		Handler: server.HandleSession,
		PasswordHandler: func(ctx ssh.Context, password string) bool {
			ok := server.checkPassword(password)
			result := "failure"
			if ok {
				result = "success"
			}
			log.Info(logger.MsgLogin,
				zap.String("user", ctx.User()),
				zap.String("remote_addr", ctx.RemoteAddr().String()),
				zap.String("result", result))
			return ok
		},
	}

	keyPem, err := configuration.PrivateKeyPem()
	if err != nil {
		return nil, fmt.Errorf("reading host key: %w", err)
	}
	if err := server.sshServer.SetOption(ssh.HostKeyPEM(keyPem)); err != nil {
		return nil, fmt.Errorf("loading host key: %w", err)
	}

	return server, nil
}

func (s *Server) checkPassword(password string) bool {
	if s.configuration.AllowAnyPassword {
		return true
	}
	match := 0
	for _, candidate := range s.configuration.Passwords {
		match |= subtle.ConstantTimeCompare([]byte(password), []byte(candidate))
	}
	return match == 1
}

// HandleSession runs an interactive shell on the session.
func (s *Server) HandleSession(sess ssh.Session) {
	select {
	case s.active <- struct{}{}:
		defer func() { <-s.active }()
	default:
		io.WriteString(sess, msgBusy)
		sess.Exit(1)
		return
	}

	if err := s.runShell(sess); err != nil {
		s.log.Warn("session failed", zap.Error(err))
		fmt.Fprintf(sess, "startsh: %v\r\n", err)
		sess.Exit(1)
		return
	}
	sess.Exit(0)
}

func (s *Server) runShell(sess ssh.Session) error {
	ptyInfo, winch, isPty := sess.Pty()
	if !isPty {
		io.WriteString(sess, msgNoPty)
		return nil
	}

	sessionID := uuid.NewString()
	log := s.log.With(
		zap.String("session", sessionID),
		zap.String("remote_addr", sess.RemoteAddr().String()))

	// Set up I/O and logging.
	logFileName := fmt.Sprintf("%s-%s.%s", time.Now().UTC().Format("20060102T150405Z"), sessionID, ttylog.AsciicastFileExt)
	logFd, err := s.configuration.CreateSessionLog(logFileName)
	if err != nil {
		return err
	}
	defer logFd.Close()

	rows, cols := ptyInfo.Window.Height, ptyInfo.Window.Width
	if rows <= 0 || cols <= 0 {
		rows, cols = s.configuration.Rows, s.configuration.Cols
	}
	var out io.Writer = sess
	if rate := s.configuration.OutputRate; rate > 0 {
		out = ratelimit.Writer(sess, ratelimit.NewBucketWithRate(float64(rate), rate))
	}
	recorder := ttylog.NewRecorder(out, ttylog.NewAsciicastLogSink(logFd, rows, cols))
	defer recorder.Close()
	display := surface.NewANSI(recorder)
	defer display.Close()

	ctx, cancel := context.WithCancel(sess.Context())
	defer cancel()

	opts := NewOptions(s.configuration, s.provider, log)
	opts.Rows, opts.Cols = rows, cols
	opts.Surface = display
	opts.Metrics = s.metrics
	shell, err := NewShell(ctx, opts)
	if err != nil {
		return err
	}
	defer shell.Close()
	shell.Start(ctx)

	// Watch for window changes.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case window, ok := <-winch:
				if !ok {
					return
				}
				recorder.RecordResize(window.Height, window.Width)
				shell.Resize(window.Height, window.Width)
			}
		}
	}()

	keys := make(chan editor.Key, 64)
	go editor.Decode(ctx, &inputRecorder{r: sess, rec: recorder}, keys)

	runErr := shell.Run(ctx, keys)
	shell.Close()
	log.Info("connection closed", zap.String("user", sess.User()))
	if err := s.configuration.SaveBookmarks(s.provider); err != nil {
		log.Warn("couldn't save bookmarks", zap.Error(err))
	}
	if errors.Is(runErr, context.Canceled) {
		// The client hung up.
		return nil
	}
	return runErr
}

// inputRecorder logs keystrokes as they are read.
type inputRecorder struct {
	r   io.Reader
	rec *ttylog.Recorder
}

func (ir *inputRecorder) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.rec.RecordInput(p[:n])
	}
	return n, err
}

// ListenAndServe listens on the configured port.
func (s *Server) ListenAndServe() error {
	s.log.Info("starting ssh server", zap.String("addr", s.sshServer.Addr))
	return s.sshServer.ListenAndServe()
}

// Serve accepts connections on l.
func (s *Server) Serve(l net.Listener) error {
	return s.sshServer.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.sshServer.Shutdown(ctx)
}
