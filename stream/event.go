package stream

import (
	"encoding/json"
	"fmt"
)

// Kind 是事件类型
type Kind string

const (
	KindTopic Kind = "topic"
	KindLog   Kind = "log"
	KindFinal Kind = "final"
	KindDone  Kind = "done"
)

// DoneSentinel 是流结束时写到线上的字面量。
const DoneSentinel = "[DONE]"

// Event 是流中的一个事件，按 Kind 区分的标签联合。
type Event struct {
	Kind Kind

	// KindTopic
	TopicKey   string
	TopicLabel string

	// KindLog
	Message string

	// KindFinal；DownloadURL 目前总是 nil
	Reply       string
	DownloadURL *string
	TopicUsed   string
}

// TopicEvent 创建主题事件
func TopicEvent(key, label string) Event {
	return Event{Kind: KindTopic, TopicKey: key, TopicLabel: label}
}

// LogEvent 创建日志事件
func LogEvent(msg string) Event {
	return Event{Kind: KindLog, Message: msg}
}

// FinalEvent 创建最终结果事件
func FinalEvent(reply, topicUsed string) Event {
	return Event{Kind: KindFinal, Reply: reply, TopicUsed: topicUsed}
}

// DoneEvent 创建结束哨兵
func DoneEvent() Event {
	return Event{Kind: KindDone}
}

// IsDone 报告事件是否为结束哨兵
func (e Event) IsDone() bool { return e.Kind == KindDone }

type topicWire struct {
	Type       Kind   `json:"type"`
	TopicKey   string `json:"topic_key"`
	TopicLabel string `json:"topic_label"`
}

type logWire struct {
	Type    Kind   `json:"type"`
	Message string `json:"message"`
}

type finalWire struct {
	Type        Kind    `json:"type"`
	Reply       string  `json:"reply"`
	DownloadURL *string `json:"download_url"`
	TopicUsed   string  `json:"topic_used"`
}

// MarshalJSON 按事件类型输出线上格式。哨兵没有 JSON 形式。
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindTopic:
		return json.Marshal(topicWire{Type: KindTopic, TopicKey: e.TopicKey, TopicLabel: e.TopicLabel})
	case KindLog:
		return json.Marshal(logWire{Type: KindLog, Message: e.Message})
	case KindFinal:
		return json.Marshal(finalWire{Type: KindFinal, Reply: e.Reply, DownloadURL: e.DownloadURL, TopicUsed: e.TopicUsed})
	default:
		return nil, fmt.Errorf("event kind %q has no JSON form", e.Kind)
	}
}

// UnmarshalJSON 解析线上格式，供客户端（CLI、测试）使用。
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        Kind    `json:"type"`
		TopicKey    string  `json:"topic_key"`
		TopicLabel  string  `json:"topic_label"`
		Message     string  `json:"message"`
		Reply       string  `json:"reply"`
		DownloadURL *string `json:"download_url"`
		TopicUsed   string  `json:"topic_used"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case KindTopic, KindLog, KindFinal:
	default:
		return fmt.Errorf("unknown event type %q", raw.Type)
	}
	*e = Event{
		Kind:        raw.Type,
		TopicKey:    raw.TopicKey,
		TopicLabel:  raw.TopicLabel,
		Message:     raw.Message,
		Reply:       raw.Reply,
		DownloadURL: raw.DownloadURL,
		TopicUsed:   raw.TopicUsed,
	}
	return nil
}

// Wire 返回事件的线上负载：哨兵为 [DONE]，其余为 JSON。
func (e Event) Wire() ([]byte, error) {
	if e.IsDone() {
		return []byte(DoneSentinel), nil
	}
	return json.Marshal(e)
}

// ParseWire 是 Wire 的逆操作
func ParseWire(payload []byte) (Event, error) {
	if string(payload) == DoneSentinel {
		return DoneEvent(), nil
	}
	var e Event
	err := json.Unmarshal(payload, &e)
	return e, err
}
