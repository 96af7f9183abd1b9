package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel 定義了發佈事件所需的最小通道操作，便於測試時替換。
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConnection interface {
	Channel() (amqpChannel, error)
	Close() error
}

type amqpConn struct{ *amqp.Connection }

func (c amqpConn) Channel() (amqpChannel, error) { return c.Connection.Channel() }

// amqpDial 用來建立 broker 連線，測試可覆寫此變數。
var amqpDial = func(url string) (amqpConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

// AMQPPublisher 透過長連線將事件發佈到 durable 佇列，
// 訊息標記為 persistent，broker 重啟後仍保留。
type AMQPPublisher struct {
	conn amqpConnection
	ch   amqpChannel
}

// NewAMQPPublisher 連線 broker 並宣告事件佇列。
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqpDial(url)
	if err != nil {
		return nil, fmt.Errorf("NewAMQPPublisher: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("NewAMQPPublisher: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("NewAMQPPublisher: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

// Publish 序列化事件並送進佇列，錯誤會記錄並回傳，由呼叫端決定是否忽略。
func (p *AMQPPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("events: marshal failed: %v", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", QueueName, false, false, pub); err != nil {
		log.Printf("events: publish failed: %v", err)
		return err
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
