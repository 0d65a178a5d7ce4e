package domain

import "strings"

// Normalizer turns inbound raw items into messages
type Normalizer struct {
	colors *ColorAssigner
}

// NewNormalizer creates a normalizer backed by the given color assigner
func NewNormalizer(colors *ColorAssigner) *Normalizer {
	if colors == nil {
		colors = NewColorAssigner()
	}
	return &Normalizer{colors: colors}
}

// Normalize builds a message from a raw item.
// The app name comes from the explicit field, else from an "App: body" prefix,
// else it is UnknownApp. A missing color is derived from the final app name.
func (n *Normalizer) Normalize(raw RawMessage) *Message {
	appName := raw.AppName
	body := raw.SMS

	if strings.TrimSpace(appName) == "" {
		appName, body = splitAppPrefix(body)
	}

	color := raw.Color
	if color == "" {
		color = n.colors.ColorFor(appName)
	}

	return &Message{
		AppName:     appName,
		Carrier:     raw.Carrier,
		Body:        body,
		DisplayTime: raw.Time,
		Color:       color,
	}
}

// NormalizeAll normalizes items keeping their order
func (n *Normalizer) NormalizeAll(raws []RawMessage) []*Message {
	msgs := make([]*Message, 0, len(raws))
	for _, raw := range raws {
		msgs = append(msgs, n.Normalize(raw))
	}
	return msgs
}

// splitAppPrefix splits "App: body" at the first colon.
// Colons after the first one stay in the body.
func splitAppPrefix(text string) (string, string) {
	prefix, rest, found := strings.Cut(text, ":")
	if !found {
		return UnknownApp, text
	}

	appName := strings.TrimSpace(prefix)
	if appName == "" {
		appName = UnknownApp
	}
	return appName, strings.TrimSpace(rest)
}
