// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"helpdesk-go/internal/config"
	"helpdesk-go/pkg/log"
	"helpdesk-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是单个任务失败后允许的最大处理次数。
const maxAttempts = 3

// retryBackoff 是同一条消息两次处理之间的等待时间。
var retryBackoff = 2 * time.Second

// TaskProcessor 处理从 Kafka 收到的语料重建任务。
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.CorpusRebuildTask) error
}

// AttemptTracker 记录任务失败次数。
type AttemptTracker interface {
	Incr(ctx context.Context, taskID string) (int64, error)
	Reset(ctx context.Context, taskID string) error
}

type redisAttempts struct {
	rdb *redis.Client
}

// NewRedisAttemptTracker 使用 Redis 计数器实现 AttemptTracker，计数键保留 24 小时。
func NewRedisAttemptTracker(rdb *redis.Client) AttemptTracker {
	return &redisAttempts{rdb: rdb}
}

func attemptsKey(taskID string) string {
	return fmt.Sprintf("kafka:attempts:%s", taskID)
}

func (r *redisAttempts) Incr(ctx context.Context, taskID string) (int64, error) {
	n, err := r.rdb.Incr(ctx, attemptsKey(taskID)).Result()
	if err != nil {
		return 0, err
	}
	_ = r.rdb.Expire(ctx, attemptsKey(taskID), 24*time.Hour).Err()
	return n, nil
}

func (r *redisAttempts) Reset(ctx context.Context, taskID string) error {
	return r.rdb.Del(ctx, attemptsKey(taskID)).Err()
}

// Producer 向 Kafka 发送语料重建任务。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers(cfg)...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return p
}

// Dispatch 发送一个语料重建任务到 Kafka。
func (p *Producer) Dispatch(ctx context.Context, task tasks.CorpusRebuildTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(task.Reason), Value: taskBytes})
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// StartConsumer 启动一个 Kafka 消费者来处理语料重建任务，直到 ctx 结束。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, tracker AttemptTracker) {
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "helpdesk-go-consumer"
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)
		// 未提交的消息在同一会话内不会被重新拉取，因此在这里原地重试
		for !handleMessage(ctx, m.Value, processor, tracker) {
			select {
			case <-ctx.Done():
				log.Info("Kafka 消费者已停止")
				return
			case <-time.After(retryBackoff):
			}
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handleMessage 处理单条消息，返回是否应提交 offset。
func handleMessage(ctx context.Context, value []byte, processor TaskProcessor, tracker AttemptTracker) bool {
	var task tasks.CorpusRebuildTask
	if err := json.Unmarshal(value, &task); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}

	log.Infof("开始处理语料重建任务: id=%s, reason=%s", task.TaskID, task.Reason)
	if err := processor.Process(ctx, task); err != nil {
		log.Errorf("处理语料重建任务失败: id=%s, Error: %v", task.TaskID, err)
		attempts, incErr := tracker.Incr(ctx, task.TaskID)
		if incErr != nil {
			// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
			return false
		}
		if attempts >= maxAttempts {
			log.Errorf("语料重建任务多次失败(>=%d)，提交 offset 终止重试: id=%s", maxAttempts, task.TaskID)
			return true
		}
		return false
	}

	log.Infof("语料重建任务处理成功: id=%s", task.TaskID)
	_ = tracker.Reset(ctx, task.TaskID)
	return true
}
