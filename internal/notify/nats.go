package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix NATS 主题前缀
const DefaultSubjectPrefix = "claims"

// NATSPublisher 将通知发布到 NATS
// 主题格式: claims.<topic>
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher 连接 NATS
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("claims-gin"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: DefaultSubjectPrefix}, nil
}

// Name 投递目标名称
func (p *NATSPublisher) Name() string { return "nats" }

// Publish 发布事件
func (p *NATSPublisher) Publish(ctx context.Context, topic string, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	subject := Subject(p.prefix, topic)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close 刷新并关闭连接
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Subject 组装主题,topic 中的 NATS 保留字符替换为 "_"
func Subject(prefix, topic string) string {
	topic = strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, topic)
	return prefix + "." + topic
}
