package mailer

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

const QueueName = "email_queue"

// Channel 是 *amqp.Channel 中发布消息所需的部分
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher 把邮件任务投递到消息队列，由 mail worker 负责真正发送
type Publisher struct {
	ch             Channel
	publishTimeout time.Duration
}

func NewPublisher(ch Channel, publishTimeout time.Duration) *Publisher {
	return &Publisher{
		ch:             ch,
		publishTimeout: publishTimeout,
	}
}

func (p *Publisher) Publish(ctx context.Context, message domain.MailMessage) error {
	// 序列化邮件
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		QueueName,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *Publisher) NotifyRunFinished(ctx context.Context, to string, run *domain.SchedulingRun) error {
	return p.Publish(ctx, NewRunFinishedMessage(to, run))
}

func NewRunFinishedMessage(to string, run *domain.SchedulingRun) domain.MailMessage {
	data := domain.RunFinishedMailData{
		RunID:       run.ID.String(),
		Status:      run.Status,
		Generations: run.Generations,
		Fitness:     run.Fitness,
		HardPenalty: run.HardPenalty,
		SoftPenalty: run.SoftPenalty,
	}
	if run.Error != nil {
		data.Error = *run.Error
	}

	return domain.MailMessage{
		Type: domain.MailTypeRunFinished,
		To:   to,
		Data: data,
	}
}
