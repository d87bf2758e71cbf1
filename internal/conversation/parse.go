package conversation

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrParseFailure means the model output could not be interpreted as a
// command, even after substring extraction.
var ErrParseFailure = errors.New("conversation: response does not match the command contract")

// ParseCommand interprets raw model output as a Command. It first tries the
// whole text, then falls back to the substring between the first '{' and the
// last '}' to tolerate prose wrapped around the JSON. Anything else is a
// parse failure; the caller decides whether to attempt a repair.
func ParseCommand(text string) (*Command, error) {
	if cmd, ok := decodeCommand(text); ok {
		return cmd, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if cmd, ok := decodeCommand(text[start : end+1]); ok {
			return cmd, nil
		}
	}

	return nil, ErrParseFailure
}

// decodeCommand decodes text as a command object. A bare JSON object that
// carries none of the contract keys (reply, control, update) is not a
// command: treating it as one would swallow arbitrary JSON the model quoted
// in passing.
func decodeCommand(text string) (*Command, bool) {
	var probe struct {
		Reply   *string         `json:"reply"`
		Control *Control        `json:"control"`
		Update  json.RawMessage `json:"update"`
	}
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, false
	}
	hasUpdate := len(probe.Update) > 0 && string(probe.Update) != "null"
	if probe.Reply == nil && probe.Control == nil && !hasUpdate {
		return nil, false
	}

	cmd := &Command{Update: probe.Update}
	if probe.Reply != nil {
		cmd.Reply = *probe.Reply
	}
	if probe.Control != nil {
		cmd.Control = *probe.Control
	}
	return cmd, true
}

// CleanReply extracts the display text from a stored assistant message. AI
// history keeps raw model output, which is usually command JSON; this strips
// the envelope for presentation. Non-command text is returned as is.
func CleanReply(raw string) string {
	cmd, err := ParseCommand(raw)
	if err != nil {
		return raw
	}
	if cmd.Reply != "" {
		return cmd.Reply
	}
	return raw
}
