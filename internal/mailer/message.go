package mailer

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// BuildMsg 根据队列中的邮件任务构建一封 HTML 邮件
func BuildMsg(from string, message domain.MailMessage) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(message.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}

	// 根据邮件类型解析数据
	switch message.Type {
	case domain.MailTypeRunFinished:
		data := domain.RunFinishedMailData{}
		if err := decodeData(message.Data, &data); err != nil {
			return nil, err
		}
		if err := msg.SetBodyHTMLTemplate(templates.Lookup("run_finished_email.html"), data); err != nil {
			return nil, fmt.Errorf("无法设置邮件正文: %w", err)
		}
		msg.Subject(fmt.Sprintf("排班系统 - 排班运行已结束（%s）", statusLabel(data.Status)))
	default:
		return nil, fmt.Errorf("不支持的邮件类型: %s", message.Type)
	}

	return msg, nil
}

// decodeData 从队列反序列化出来的 Data 是 map，需要再转换一次
func decodeData(src any, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("邮件数据格式错误: %w", err)
	}
	return nil
}

func statusLabel(status domain.RunStatus) string {
	switch status {
	case domain.RunStatusConverged:
		return "已收敛"
	case domain.RunStatusExhausted:
		return "达到最大代数"
	case domain.RunStatusCancelled:
		return "已取消"
	case domain.RunStatusFailed:
		return "失败"
	default:
		return string(status)
	}
}
