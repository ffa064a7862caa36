package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"Quilt/config"
	"Quilt/pkg/logger"
)

const (
	// ExchangeQuilt 业务消息使用的 direct exchange
	ExchangeQuilt = "quilt.direct"

	QueueVerificationSMS = "quilt.sms.verification"
	QueueOnboardingEvent = "quilt.onboarding.events"
)

var (
	conn     *amqp.Connection
	connMu   sync.RWMutex
	initOnce sync.Once
	initErr  error
)

// Init 建立连接并声明 exchange 与队列
func Init() error {
	initOnce.Do(func() {
		c, err := amqp.Dial(config.Cfg.GetRabbitMQURL())
		if err != nil {
			initErr = fmt.Errorf("failed to connect RabbitMQ: %w", err)
			return
		}

		connMu.Lock()
		conn = c
		connMu.Unlock()

		initErr = declareTopology()
		if initErr == nil {
			logger.Logger.Info("RabbitMQ initialized successfully", zap.String("component", "rabbitmq"))
		}
	})

	return initErr
}

func declareTopology() error {
	ch, err := Connection().Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ExchangeQuilt, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	for _, queue := range []string{QueueVerificationSMS, QueueOnboardingEvent} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, queue, ExchangeQuilt, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", queue, err)
		}
	}
	return nil
}

func Connection() *amqp.Connection {
	connMu.RLock()
	defer connMu.RUnlock()
	return conn
}

func Close(ctx context.Context) error {
	closePublisher()

	c := Connection()
	if c == nil || c.IsClosed() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
