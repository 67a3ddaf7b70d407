package notifications

import (
	"fmt"
	"strings"
)

// Card templates (header colors).
const (
	TemplateAttention = "orange"
	TemplateNeutral   = "grey"
	TemplateInfo      = "blue"
)

const (
	updateTitle    = "Dropbox update"
	heartbeatTitle = "Dropbox heartbeat"
	testTitle      = "dropwatch test"
)

// Link is an optional call to action rendered under the card body.
type Link struct {
	Text string
	URL  string
}

// Card is a provider-neutral notification payload.
type Card struct {
	Title    string
	Template string
	Body     string
	Link     *Link
}

// Markdown returns the body with the link appended in lark_md syntax.
func (c Card) Markdown() string {
	if c.Link == nil || strings.TrimSpace(c.Link.URL) == "" {
		return c.Body
	}
	text := c.Link.Text
	if text == "" {
		text = c.Link.URL
	}
	if c.Body == "" {
		return fmt.Sprintf("[%s](%s)", text, c.Link.URL)
	}
	return fmt.Sprintf("%s\n\n[%s](%s)", c.Body, text, c.Link.URL)
}

// BuildUpdateCard renders the card for a non-empty batch. names must be in
// display order; the last one is reported as the latest file. At most
// maxListed names are listed, followed by a "+N more" line.
func BuildUpdateCard(names []string, link *Link, maxListed int) Card {
	var b strings.Builder
	if len(names) > 0 {
		b.WriteString("**Latest file:**\n")
		b.WriteString(names[len(names)-1])
	}
	if len(names) > 1 {
		fmt.Fprintf(&b, "\n\n**New or changed files (%d):**", len(names))
		shown := names
		if maxListed > 0 && len(shown) > maxListed {
			shown = shown[:maxListed]
		}
		for _, name := range shown {
			b.WriteString("\n- ")
			b.WriteString(name)
		}
		if extra := len(names) - len(shown); extra > 0 {
			fmt.Fprintf(&b, "\n+%d more", extra)
		}
	}
	return Card{
		Title:    updateTitle,
		Template: TemplateAttention,
		Body:     b.String(),
		Link:     link,
	}
}

// BuildHeartbeatCard renders the card sent when a tick finds nothing new.
func BuildHeartbeatCard() Card {
	return Card{
		Title:    heartbeatTitle,
		Template: TemplateNeutral,
		Body:     "No new files",
	}
}

// BuildTestCard renders the card sent by the test-notify command.
func BuildTestCard(mode string) Card {
	return Card{
		Title:    testTitle,
		Template: TemplateInfo,
		Body:     fmt.Sprintf("Notification delivery is working (mode: %s).", mode),
	}
}

type textElement struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardElement struct {
	Tag  string      `json:"tag"`
	Text textElement `json:"text"`
}

type cardHeader struct {
	Title    textElement `json:"title"`
	Template string      `json:"template"`
}

type cardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

type interactiveCard struct {
	Config   cardConfig    `json:"config"`
	Header   cardHeader    `json:"header"`
	Elements []cardElement `json:"elements"`
}

func (c Card) interactive() interactiveCard {
	template := c.Template
	if template == "" {
		template = TemplateInfo
	}
	return interactiveCard{
		Config: cardConfig{WideScreenMode: true},
		Header: cardHeader{
			Title:    textElement{Tag: "plain_text", Content: c.Title},
			Template: template,
		},
		Elements: []cardElement{{
			Tag:  "div",
			Text: textElement{Tag: "lark_md", Content: c.Markdown()},
		}},
	}
}
