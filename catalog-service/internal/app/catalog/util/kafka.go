package util

import (
	"context"
	"fmt"
	"time"

	"productcatalog/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer обертка над Kafka writer для отправки событий
// Отправляет PRODUCT_CREATED, PRODUCT_DELETED и REVIEW_CREATED в топик product_events
type KafkaProducer struct {
	writer         *kafka.Writer // Синхронный writer, ошибка возвращается вызывающему
	topic          string        // Топик для метрик
	publishTimeout time.Duration // Отправка не держит HTTP запрос дольше этого
}

// NewKafkaProducer создает новый Kafka producer
// brokers - список брокеров Kafka в формате ["host:port"]
// publishTimeout - предел на одну отправку вместе с ретраями
func NewKafkaProducer(brokers []string, topic string, publishTimeout time.Duration) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...), // Адреса брокеров Kafka
		Topic:        topic,                 // Топик для событий каталога
		Balancer:     &kafka.Hash{},         // События одного товара - в одну партицию
		BatchSize:    1,                     // Событие уходит сразу, без накопления
		BatchTimeout: 10 * time.Millisecond, // Таймаут батча
		WriteTimeout: publishTimeout,        // Таймаут записи в брокер
		MaxAttempts:  3,                     // Ретраи внутри publishTimeout
		RequiredAcks: kafka.RequireOne,      // Достаточно подтверждения лидера
	}

	return &KafkaProducer{writer: writer, topic: topic, publishTimeout: publishTimeout}
}

// PublishMessage отправляет сообщение в Kafka
// key - ID товара, value - JSON события
// Ожидание ограничено publishTimeout даже если ctx запроса живет дольше
func (p *KafkaProducer) PublishMessage(ctx context.Context, key string, value []byte) error {
	timer := metrics.NewKafkaProduceTimer(metricsService, p.topic)

	ctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	message := kafka.Message{
		Key:   []byte(key), // Ключ для партиционирования
		Value: value,       // Тело события
		Time:  time.Now(),  // Временная метка сообщения
	}

	// Отправляем сообщение с контекстом, ограниченным таймаутом
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		timer.Error()
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	timer.Success()
	return nil
}

// Close дожидается отправки буфера и закрывает writer
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// NoopPublisher используется при KAFKA_ENABLED=false
type NoopPublisher struct{}

// PublishMessage отбрасывает событие
func (NoopPublisher) PublishMessage(context.Context, string, []byte) error { return nil }

func (NoopPublisher) Close() error { return nil }
