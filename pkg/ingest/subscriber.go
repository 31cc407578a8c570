package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var (
	// ErrNoConn indicates a subscriber configured without a connection.
	ErrNoConn = errors.New("NATS connection is required")

	// ErrNoAssembler indicates a subscriber configured without an assembler.
	ErrNoAssembler = errors.New("assembler is required")

	// ErrNoDispatcher indicates a subscriber configured without a dispatcher.
	ErrNoDispatcher = errors.New("dispatcher is required")
)

// SubscriberConfig configures a document Subscriber.
type SubscriberConfig struct {
	// Conn is the NATS connection to subscribe on.
	Conn *nats.Conn

	// SubjectPrefix is the subject root documents are published under; the
	// document type is the next token (e.g. "documents.start").
	// Default: "documents".
	SubjectPrefix string

	// Assembler receives the decoded documents.
	Assembler *Assembler

	// Dispatcher serializes document handling onto the model goroutine.
	Dispatcher *Dispatcher

	// Logger is optional; nil disables logging.
	Logger *zap.Logger
}

// Subscriber bridges NATS document subjects onto an Assembler. Messages are
// handed to the dispatcher so the assembler and everything downstream of its
// run list only ever run on one goroutine.
type Subscriber struct {
	conn       *nats.Conn
	prefix     string
	assembler  *Assembler
	dispatcher *Dispatcher
	logger     *zap.Logger

	sub *nats.Subscription
}

// NewSubscriber validates the configuration and creates a subscriber.
func NewSubscriber(cfg SubscriberConfig) (*Subscriber, error) {
	if cfg.Conn == nil {
		return nil, ErrNoConn
	}
	if cfg.Assembler == nil {
		return nil, ErrNoAssembler
	}
	if cfg.Dispatcher == nil {
		return nil, ErrNoDispatcher
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "documents"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Subscriber{
		conn:       cfg.Conn,
		prefix:     cfg.SubjectPrefix,
		assembler:  cfg.Assembler,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
	}, nil
}

// Start subscribes to the document subjects. Calling Start twice is an error.
func (s *Subscriber) Start() error {
	if s.sub != nil {
		return fmt.Errorf("subscriber already started on %q", s.sub.Subject)
	}
	subject := s.prefix + ".>"
	sub, err := s.conn.Subscribe(subject, s.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", subject, err)
	}
	s.sub = sub
	s.logger.Info("document subscriber started", zap.String("subject", subject))
	return nil
}

func (s *Subscriber) handle(msg *nats.Msg) {
	tokens := strings.Split(msg.Subject, ".")
	name := tokens[len(tokens)-1]
	payload := msg.Data

	err := s.dispatcher.Dispatch(func() {
		if err := s.assembler.Consume(name, payload); err != nil {
			s.logger.Error("failed to consume document",
				zap.String("subject", msg.Subject), zap.Error(err))
		}
	})
	if err != nil {
		s.logger.Warn("dropping document, dispatcher closed",
			zap.String("subject", msg.Subject))
	}
}

// Stop unsubscribes from the document subjects. The dispatcher is owned by
// the caller and is not closed here.
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	err := s.sub.Unsubscribe()
	s.sub = nil
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	s.logger.Info("document subscriber stopped")
	return nil
}
