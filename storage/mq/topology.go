package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// EventsExchange 事件总线
	EventsExchange = "events.topic"
	// ParticipationQueue worker 消费的参与变更队列
	ParticipationQueue = "participation.events"
	// ParticipationBinding 绑定所有参与事件
	ParticipationBinding = "participation.*"
)

// DeclareTopology 声明交换机、队列和绑定，重复声明是幂等的
func DeclareTopology() error {
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(EventsExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", EventsExchange, err)
	}

	if _, err := ch.QueueDeclare(ParticipationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", ParticipationQueue, err)
	}

	if err := ch.QueueBind(ParticipationQueue, ParticipationBinding, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", ParticipationQueue, err)
	}

	return nil
}
