package listener

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/store"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var (
	ErrMalformedEvent   = errors.New("malformed change event")
	ErrUnknownSourceTag = errors.New("change event source could not be resolved")
)

// Message is one change-event message as delivered by the broker.
type Message struct {
	Id    string
	Topic string
	Tag   string
	Body  []byte

	handle any
}

// DecodeMessage turns a stream-record body into a change event:
//
//	{"eventID": "...", "eventName": "INSERT",
//	 "tableName": "WalletTable",
//	 "dynamodb": {"Keys": {...}, "NewImage": {...}, "OldImage": {...}}}
//
// Images may carry typed attribute values ({"S": "x"}, {"N": "1.5"}) or plain
// JSON values. The source comes from the message tag, then the tableName
// field; both must name a source table exactly.
func DecodeMessage(msg Message, receivedAt time.Time) (models.ChangeEvent, error) {
	if !gjson.ValidBytes(msg.Body) {
		return models.ChangeEvent{}, fmt.Errorf("%w: body is not valid JSON", ErrMalformedEvent)
	}
	root := gjson.ParseBytes(msg.Body)

	kind, ok := models.ParseEventKind(root.Get("eventName").String())
	if !ok {
		return models.ChangeEvent{}, fmt.Errorf("%w: event name %q", ErrMalformedEvent, root.Get("eventName").String())
	}

	source := models.ParseSourceEntity(msg.Tag)
	if source == models.SourceUnknown {
		source = models.ParseSourceEntity(root.Get("tableName").String())
	}
	if source == models.SourceUnknown {
		return models.ChangeEvent{}, fmt.Errorf("%w: tag %q", ErrUnknownSourceTag, msg.Tag)
	}

	id := root.Get("eventID").String()
	if id == "" {
		id = msg.Id
	}
	if id == "" {
		id = uuid.NewString()
	}

	record := root.Get("dynamodb")
	return models.ChangeEvent{
		Id:         id,
		Kind:       kind,
		Source:     source,
		Keys:       attributeMap(record.Get("Keys")),
		NewImage:   attributeMap(record.Get("NewImage")),
		OldImage:   attributeMap(record.Get("OldImage")),
		ReceivedAt: receivedAt,
	}, nil
}

func attributeMap(res gjson.Result) models.Item {
	if !res.Exists() || !res.IsObject() {
		return nil
	}
	out := models.Item{}
	res.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = attributeValue(value)
		return true
	})
	return out
}

func attributeValue(v gjson.Result) any {
	if typ, inner, ok := typedAttribute(v); ok {
		switch typ {
		case "S":
			return inner.String()
		case "N":
			return store.NormalizeNumbers(json.Number(inner.String()))
		case "BOOL":
			return inner.Bool()
		case "NULL":
			return nil
		case "M":
			return attributeMap(inner)
		case "L":
			out := []any{}
			inner.ForEach(func(_, e gjson.Result) bool {
				out = append(out, attributeValue(e))
				return true
			})
			return out
		case "SS":
			out := []any{}
			inner.ForEach(func(_, e gjson.Result) bool {
				out = append(out, e.String())
				return true
			})
			return out
		case "NS":
			out := []any{}
			inner.ForEach(func(_, e gjson.Result) bool {
				out = append(out, store.NormalizeNumbers(json.Number(e.String())))
				return true
			})
			return out
		}
	}
	if v.IsObject() {
		return attributeMap(v)
	}
	return store.NormalizeNumbers(v.Value())
}

// typedAttribute recognizes a single-key {"<type>": value} wrapper.
func typedAttribute(v gjson.Result) (string, gjson.Result, bool) {
	if !v.IsObject() {
		return "", gjson.Result{}, false
	}
	var (
		typ   string
		inner gjson.Result
		count int
	)
	v.ForEach(func(key, value gjson.Result) bool {
		count++
		typ, inner = key.String(), value
		return count < 2
	})
	if count != 1 {
		return "", gjson.Result{}, false
	}
	switch typ {
	case "S", "N", "BOOL", "NULL", "M", "L", "SS", "NS":
		return typ, inner, true
	default:
		return "", gjson.Result{}, false
	}
}
