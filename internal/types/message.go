// Package types provides the chat-completion shapes the relay inspects.
// The relay forwards bodies as raw JSON; these types are only decoded for
// diagnostics such as token estimation.
package types

import "encoding/json"

// RoleUser is the role of end-user messages.
const RoleUser = "user"

// Message represents a chat message with polymorphic content support.
// Content can be a string or an array of ContentPart for multimodal input.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content,omitempty"`
	Name    string  `json:"name,omitempty"`
}

// Content represents message content that can be a string or array of parts.
type Content struct {
	Text  string
	Parts []ContentPart
}

// ContentPart represents a single part of multimodal content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ContentTypeText marks a text content part.
const ContentTypeText = "text"

// UnmarshalJSON accepts both string and array formats.
func (c *Content) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		c.Parts = nil
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err == nil {
		c.Parts = parts
		c.Text = ""
		return nil
	}

	return nil // Allow null/empty content
}

// String returns the text content, concatenating parts if multimodal.
func (c Content) String() string {
	if c.Text != "" {
		return c.Text
	}
	var result string
	for _, part := range c.Parts {
		if part.Type == ContentTypeText {
			result += part.Text
		}
	}
	return result
}

// NewTextMessage creates a simple text message.
func NewTextMessage(role, content string) Message {
	return Message{
		Role:    role,
		Content: Content{Text: content},
	}
}
