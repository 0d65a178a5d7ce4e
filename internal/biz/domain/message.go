package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// UnknownApp is the application name used when none can be derived
const UnknownApp = "Unknown"

// Message represents one stored SMS notification
type Message struct {
	ID          int64
	BatchID     string
	AppName     string
	Carrier     string
	Body        string
	DisplayTime string // Opaque upstream text, e.g. "2 minutes ago"
	Color       string
	ReceivedAt  time.Time
}

// RawMessage is an inbound message item before normalization.
// Every field is optional; decoding never fails on odd value types.
type RawMessage struct {
	AppName string `json:"app_name"`
	Carrier string `json:"carrier"`
	SMS     string `json:"sms"`
	Time    string `json:"time"`
	Color   string `json:"color"`
}

// UnmarshalJSON decodes a message item leniently: numbers and booleans are
// stringified, nulls and nested values become empty strings.
func (r *RawMessage) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// Not an object: treat as an empty item
		*r = RawMessage{}
		return nil
	}

	*r = RawMessage{
		AppName: looseString(fields["app_name"]),
		Carrier: looseString(fields["carrier"]),
		SMS:     looseString(fields["sms"]),
		Time:    looseString(fields["time"]),
		Color:   looseString(fields["color"]),
	}
	return nil
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return ""
	}

	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
