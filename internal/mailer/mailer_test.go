package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

type fakeChannel struct {
	exchange  string
	key       string
	mandatory bool
	msg       amqp.Publishing
	deadline  bool
	err       error
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, _ bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.mandatory = mandatory
	c.msg = msg
	_, c.deadline = ctx.Deadline()
	return c.err
}

func finishedRun() *domain.SchedulingRun {
	return &domain.SchedulingRun{
		ID:          uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		Owner:       "alice",
		Status:      domain.RunStatusConverged,
		Fitness:     123.456,
		HardPenalty: 0,
		SoftPenalty: 12.3456,
		Generations: 87,
	}
}

func TestPublisher_NotifyRunFinished(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, time.Second)

	require.NoError(t, p.NotifyRunFinished(context.Background(), "alice@example.com", finishedRun()))

	assert.Equal(t, "", ch.exchange)
	assert.Equal(t, QueueName, ch.key)
	assert.True(t, ch.mandatory)
	assert.True(t, ch.deadline)
	assert.Equal(t, "application/json", ch.msg.ContentType)

	var message domain.MailMessage
	require.NoError(t, json.Unmarshal(ch.msg.Body, &message))
	assert.Equal(t, domain.MailTypeRunFinished, message.Type)
	assert.Equal(t, "alice@example.com", message.To)

	data := domain.RunFinishedMailData{}
	require.NoError(t, decodeData(message.Data, &data))
	assert.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2", data.RunID)
	assert.Equal(t, 87, data.Generations)
}

func TestPublisher_PropagatesError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := NewPublisher(ch, time.Second)

	assert.Error(t, p.NotifyRunFinished(context.Background(), "alice@example.com", finishedRun()))
}

func TestNewRunFinishedMessage_IncludesError(t *testing.T) {
	run := finishedRun()
	msg := "第 3 代运行失败"
	run.Status = domain.RunStatusFailed
	run.Error = &msg

	message := NewRunFinishedMessage("alice@example.com", run)

	data, ok := message.Data.(domain.RunFinishedMailData)
	require.True(t, ok)
	assert.Equal(t, msg, data.Error)
}

func TestBuildMsg_RunFinished(t *testing.T) {
	ch := &fakeChannel{}
	require.NoError(t, NewPublisher(ch, time.Second).NotifyRunFinished(context.Background(), "alice@example.com", finishedRun()))

	// 模拟 worker 从队列中读到的消息
	var message domain.MailMessage
	require.NoError(t, json.Unmarshal(ch.msg.Body, &message))

	msg, err := BuildMsg("noreply@example.com", message)
	require.NoError(t, err)

	require.Len(t, msg.GetToString(), 1)
	assert.Contains(t, msg.GetToString()[0], "alice@example.com")
	subject := msg.GetGenHeader(mail.HeaderSubject)
	require.Len(t, subject, 1)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject[0])
	require.NoError(t, err)
	assert.Equal(t, "排班系统 - 排班运行已结束（已收敛）", decoded)

	parts := msg.GetParts()
	require.NotEmpty(t, parts)
	body, err := parts[0].GetContent()
	require.NoError(t, err)
	assert.Contains(t, string(body), "7d444840-9dc0-11d1-b245-5ffdce74fad2")
	assert.Contains(t, string(body), "123.46")
	assert.NotContains(t, string(body), "错误信息")
}

func TestBuildMsg_Rejects(t *testing.T) {
	_, err := BuildMsg("noreply@example.com", domain.MailMessage{Type: "unknown", To: "alice@example.com"})
	assert.Error(t, err)

	_, err = BuildMsg("noreply@example.com", domain.MailMessage{Type: domain.MailTypeRunFinished, To: "not an address"})
	assert.Error(t, err)
}
