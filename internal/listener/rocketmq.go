package listener

import (
	"context"
	"fmt"
	"time"

	"loyalty-analytics-go/internal/models"

	rmq_client "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"
)

const (
	defaultAwaitDuration     = 5 * time.Second
	defaultMaxMessageNum     = int32(16)
	defaultInvisibleDuration = 20 * time.Second
)

// RocketMQSource reads change events from a RocketMQ simple consumer.
type RocketMQSource struct {
	consumer          rmq_client.SimpleConsumer
	maxMessageNum     int32
	invisibleDuration time.Duration
}

func NewRocketMQSource(cfg models.UpdaterConfig) (*RocketMQSource, error) {
	if cfg.Endpoint == "" || cfg.ConsumerGroup == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("rocketmq endpoint, consumer group and topic are required")
	}
	if cfg.AwaitDuration <= 0 {
		cfg.AwaitDuration = defaultAwaitDuration
	}
	if cfg.MaxMessageNum <= 0 {
		cfg.MaxMessageNum = defaultMaxMessageNum
	}
	if cfg.InvisibleDuration <= 0 {
		cfg.InvisibleDuration = defaultInvisibleDuration
	}

	consumer, err := rmq_client.NewSimpleConsumer(&rmq_client.Config{
		Endpoint:      cfg.Endpoint,
		ConsumerGroup: cfg.ConsumerGroup,
		Credentials: &credentials.SessionCredentials{
			AccessKey:    cfg.AccessKey,
			AccessSecret: cfg.SecretKey,
		},
	},
		rmq_client.WithAwaitDuration(cfg.AwaitDuration),
		rmq_client.WithSubscriptionExpressions(map[string]*rmq_client.FilterExpression{
			cfg.Topic: rmq_client.SUB_ALL,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rocketmq consumer: %w", err)
	}

	return &RocketMQSource{
		consumer:          consumer,
		maxMessageNum:     cfg.MaxMessageNum,
		invisibleDuration: cfg.InvisibleDuration,
	}, nil
}

func (s *RocketMQSource) Start() error { return s.consumer.Start() }

func (s *RocketMQSource) Stop() error { return s.consumer.GracefulStop() }

func (s *RocketMQSource) Receive(ctx context.Context) ([]Message, error) {
	mvs, err := s.consumer.Receive(ctx, s.maxMessageNum, s.invisibleDuration)
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(mvs))
	for _, mv := range mvs {
		if mv == nil {
			continue
		}
		msg := Message{
			Id:     mv.GetMessageId(),
			Topic:  mv.GetTopic(),
			Body:   mv.GetBody(),
			handle: mv,
		}
		if tag := mv.GetTag(); tag != nil {
			msg.Tag = *tag
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RocketMQSource) Ack(ctx context.Context, msg Message) error {
	mv, ok := msg.handle.(*rmq_client.MessageView)
	if !ok || mv == nil {
		return fmt.Errorf("message %s was not received from rocketmq", msg.Id)
	}
	return s.consumer.Ack(ctx, mv)
}
