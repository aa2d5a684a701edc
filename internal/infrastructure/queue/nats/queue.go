// Package nats announces catalog changes on a NATS subject pair so
// downstream consumers can react to uploads and deletions.
package nats

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/CodeSetter56/knowledge-search/internal/infrastructure/resilience"
)

type Publisher struct {
	conn            *nats.Conn
	uploadedSubject string
	deletedSubject  string
	executor        *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, uploadedSubject, deletedSubject string) (*Publisher, error) {
	return NewWithOptions(url, uploadedSubject, deletedSubject, Options{})
}

func NewWithOptions(url, uploadedSubject, deletedSubject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("knowledge-search"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{
		conn:            conn,
		uploadedSubject: uploadedSubject,
		deletedSubject:  deletedSubject,
		executor:        options.ResilienceExecutor,
	}, nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *Publisher) PublishFileUploaded(ctx context.Context, fileID string) error {
	return p.publish(ctx, p.uploadedSubject, fileID)
}

func (p *Publisher) PublishFileDeleted(ctx context.Context, fileID string) error {
	return p.publish(ctx, p.deletedSubject, fileID)
}

func (p *Publisher) publish(ctx context.Context, subject, fileID string) error {
	call := func(_ context.Context) error {
		if err := p.conn.Publish(subject, []byte(fileID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}
