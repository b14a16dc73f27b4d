package notification

import (
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RetryCount int
	RetryDelay time.Duration
}

// Client owns a long-lived AMQP connection with automatic reconnection. One
// client is created at startup and injected; nothing dials per request.
type Client struct {
	config  RabbitMQConfig
	logger  *zap.SugaredLogger
	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closing bool
}

func NewClient(config RabbitMQConfig, logger *zap.SugaredLogger) *Client {
	if config.RetryCount <= 0 {
		config.RetryCount = 5
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 2 * time.Second
	}

	return &Client{
		config: config,
		logger: logger,
	}
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for i := 0; i < c.config.RetryCount; i++ {
		c.conn, err = amqp.Dial(c.config.URL)
		if err != nil {
			c.logger.Warnw("rabbitmq connection failed",
				"attempt", i+1, "max_attempts", c.config.RetryCount, "error", err)
			if i < c.config.RetryCount-1 {
				time.Sleep(c.config.RetryDelay)
				continue
			}
			return fmt.Errorf("connecting to rabbitmq: %w", err)
		}

		c.channel, err = c.conn.Channel()
		if err != nil {
			c.conn.Close()
			return fmt.Errorf("opening rabbitmq channel: %w", err)
		}

		err = c.channel.ExchangeDeclare(
			c.config.Exchange, // name
			"topic",           // type
			true,              // durable
			false,             // auto-deleted
			false,             // internal
			false,             // no-wait
			nil,               // arguments
		)
		if err != nil {
			c.channel.Close()
			c.conn.Close()
			return fmt.Errorf("declaring exchange: %w", err)
		}

		c.logger.Infow("rabbitmq connected", "exchange", c.config.Exchange)

		go c.handleReconnection()

		return nil
	}

	return err
}

func (c *Client) handleReconnection() {
	notifyClose := make(chan *amqp.Error)
	c.conn.NotifyClose(notifyClose)

	if err, ok := <-notifyClose; ok && !c.isClosing() {
		c.logger.Warnw("rabbitmq connection lost, reconnecting", "error", err)
		time.Sleep(c.config.RetryDelay)
		if reconnectErr := c.Connect(); reconnectErr != nil {
			c.logger.Errorw("rabbitmq reconnect failed", "error", reconnectErr)
		}
	}
}

func (c *Client) isClosing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closing
}

func (c *Client) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return nil
	}
	c.closing = true

	var closeErr error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			closeErr = fmt.Errorf("closing channel: %w", err)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil && closeErr == nil {
			closeErr = fmt.Errorf("closing connection: %w", err)
		}
	}

	return closeErr
}
