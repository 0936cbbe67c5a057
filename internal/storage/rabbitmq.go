package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"retractor-go/internal/config"
)

// MessageQueue 消息队列接口
type MessageQueue interface {
	// 发布消息
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error

	// 发布JSON格式消息
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data any, persistent bool) error

	// 启动消费者，handler 返回 true 时确认消息，否则拒绝并重新入队
	StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler func(context.Context, []byte) bool) (<-chan struct{}, error)

	// 关闭连接
	Close() error
}

// 确保RabbitMQ实现了MessageQueue接口
var _ MessageQueue = (*RabbitMQ)(nil)

// RabbitMQ 提供消息队列功能
type RabbitMQ struct {
	conn        *amqp.Connection
	channelPool sync.Pool
	mu          sync.Mutex
	declared    map[string]bool // 已声明的exchange/queue/binding
	publishMu   sync.Mutex      // 保护发布操作
	cfg         *config.RabbitMQConfig
	logger      zerolog.Logger
}

// NewRabbitMQ 创建RabbitMQ客户端
func NewRabbitMQ(cfg *config.RabbitMQConfig, logger zerolog.Logger) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}

	mq := &RabbitMQ{
		conn:     conn,
		declared: make(map[string]bool),
		cfg:      cfg,
		logger:   logger.With().Str("component", "rabbitmq").Logger(),
	}
	mq.channelPool = sync.Pool{
		New: func() any {
			ch, errPool := conn.Channel()
			if errPool != nil {
				mq.logger.Error().Err(errPool).Msg("创建RabbitMQ通道失败")
				return nil
			}
			return ch
		},
	}

	// 测试连接和通道
	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道")
	}
	mq.putChannel(testCh)

	mq.logger.Info().Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

// 获取可用通道
func (r *RabbitMQ) getChannel() *amqp.Channel {
	if v := r.channelPool.Get(); v != nil {
		if ch, ok := v.(*amqp.Channel); ok && ch != nil && !ch.IsClosed() {
			return ch
		}
	}
	ch, err := r.conn.Channel()
	if err != nil {
		r.logger.Error().Err(err).Msg("创建新RabbitMQ通道失败")
		return nil
	}
	return ch
}

// 归还通道到池
func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil && !ch.IsClosed() {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// DeclareTopology 声明请求队列、结果交换机和结果队列
func (r *RabbitMQ) DeclareTopology() error {
	if err := r.EnsureQueue(r.cfg.RequestQueue, true); err != nil {
		return err
	}
	if r.cfg.ResultExchange == "" {
		if r.cfg.ResultQueue != "" {
			return r.EnsureQueue(r.cfg.ResultQueue, true)
		}
		return nil
	}
	if err := r.EnsureExchange(r.cfg.ResultExchange, amqp.ExchangeDirect, true); err != nil {
		return err
	}
	if r.cfg.ResultQueue == "" {
		return nil
	}
	if err := r.EnsureQueue(r.cfg.ResultQueue, true); err != nil {
		return err
	}
	return r.BindQueue(r.cfg.ResultQueue, r.cfg.ResultExchange, r.cfg.ResultRoutingKey)
}

// declareOnce 同一名称只声明一次
func (r *RabbitMQ) declareOnce(key string, declare func(ch *amqp.Channel) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.declared[key] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	if err := declare(ch); err != nil {
		return err
	}
	r.declared[key] = true
	return nil
}

// EnsureExchange 确保exchange存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange名称不能为空")
	}
	// 防止尝试声明默认交换机
	if exchangeName == "amq.default" || exchangeName == "default" {
		return fmt.Errorf("不能声明默认交换机 '%s'", exchangeName)
	}

	return r.declareOnce("exchange:"+exchangeName, func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
			return fmt.Errorf("声明exchange失败: %w", err)
		}
		r.logger.Info().Str("exchange", exchangeName).Msg("已确保exchange存在")
		return nil
	})
}

// EnsureQueue 确保队列存在
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	if queueName == "" {
		return fmt.Errorf("队列名称不能为空")
	}
	return r.declareOnce("queue:"+queueName, func(ch *amqp.Channel) error {
		if _, err := ch.QueueDeclare(queueName, durable, false, false, false, nil); err != nil {
			return fmt.Errorf("声明队列失败: %w", err)
		}
		r.logger.Info().Str("queue", queueName).Msg("已确保队列存在")
		return nil
	})
}

// BindQueue 绑定队列到exchange
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	bindingKey := fmt.Sprintf("binding:%s:%s:%s", exchangeName, queueName, routingKey)
	return r.declareOnce(bindingKey, func(ch *amqp.Channel) error {
		if err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
			return fmt.Errorf("绑定队列到exchange失败: %w", err)
		}
		return nil
	})
}

// PublishMessage 发布消息到exchange
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}

	return ch.PublishWithContext(
		ctx,
		exchangeName,
		routingKey,
		false, // 强制
		false, // 立即
		amqp.Publishing{
			DeliveryMode: deliveryMode,
			ContentType:  "application/json",
			Body:         message,
			Timestamp:    time.Now(),
		},
	)
}

// PublishJSON 发布JSON格式的消息
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data any, persistent bool) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}
	return r.PublishMessage(ctx, exchangeName, routingKey, jsonData, persistent)
}

// StartConsumer 启动消费者，ctx 结束或通道关闭时停止，返回的通道在消费者退出后关闭
func (r *RabbitMQ) StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler func(context.Context, []byte) bool) (<-chan struct{}, error) {
	ch := r.getChannel()
	if ch == nil {
		return nil, fmt.Errorf("无法获取RabbitMQ通道")
	}

	// 设置QoS，控制预取数量
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("设置QoS失败: %w", err)
	}

	deliveries, err := ch.Consume(
		queueName,
		"",    // 消费者标签，留空由server生成唯一标签
		false, // 自动确认
		false, // 独占
		false, // 非本地
		false, // 非阻塞
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("注册消费者失败: %w", err)
	}

	done := make(chan struct{})
	go func() {
		// 消费通道设置过QoS，不放回池中
		defer ch.Close()
		defer close(done)
		defer r.logger.Info().Str("queue", queueName).Msg("RabbitMQ消费者已停止")

		r.logger.Info().Str("queue", queueName).Int("prefetch", prefetchCount).Msg("RabbitMQ消费者已启动")

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					r.logger.Warn().Str("queue", queueName).Msg("RabbitMQ通道已关闭")
					return
				}

				if handler(ctx, delivery.Body) {
					if err := delivery.Ack(false); err != nil {
						r.logger.Error().Err(err).Msg("确认消息失败")
					}
				} else {
					// 处理失败，拒绝并重新入队
					if err := delivery.Nack(false, true); err != nil {
						r.logger.Error().Err(err).Msg("拒绝消息失败")
					}
				}
			}
		}
	}()

	return done, nil
}
