// Package message renders the user-facing message texts for survey
// delivery and reminders from Liquid templates, so operators can restyle
// the wording without touching send logic.
package message

import (
	"fmt"

	"github.com/osteele/liquid"
)

// Default templates. Overridable via config for workspaces that want
// different wording.
const (
	DefaultGreetingTemplate = "Hi {{ user_name }}! Survey: {{ survey_name }}"

	DefaultPromptTemplate = "*{{ survey_name }}*\n{{ question }}"

	DefaultReminderTemplate = ":bell: *Gentle Reminder*\n\n" +
		"Hi! This is a friendly reminder to complete the survey *{{ survey_name }}*.\n\n" +
		"Please take a moment to provide your response. Thank you! :pray:"
)

// Renderer renders message templates with survey/user bindings.
// Safe for concurrent use.
type Renderer struct {
	engine   *liquid.Engine
	greeting string
	prompt   string
	reminder string
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithGreetingTemplate overrides the DM notification fallback text.
func WithGreetingTemplate(tpl string) Option { return func(r *Renderer) { r.greeting = tpl } }

// WithPromptTemplate overrides the survey prompt body.
func WithPromptTemplate(tpl string) Option { return func(r *Renderer) { r.prompt = tpl } }

// WithReminderTemplate overrides the threaded reminder body.
func WithReminderTemplate(tpl string) Option { return func(r *Renderer) { r.reminder = tpl } }

// NewRenderer creates a Renderer with the default templates.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		engine:   liquid.NewEngine(),
		greeting: DefaultGreetingTemplate,
		prompt:   DefaultPromptTemplate,
		reminder: DefaultReminderTemplate,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Greeting renders the plain-text notification line shown in the DM push.
func (r *Renderer) Greeting(userName, surveyName string) (string, error) {
	out, err := r.engine.ParseAndRenderString(r.greeting, liquid.Bindings{
		"user_name":   userName,
		"survey_name": surveyName,
	})
	if err != nil {
		return "", fmt.Errorf("render greeting: %w", err)
	}
	return out, nil
}

// Prompt renders the survey question body of the initial message.
func (r *Renderer) Prompt(surveyName, question string) (string, error) {
	out, err := r.engine.ParseAndRenderString(r.prompt, liquid.Bindings{
		"survey_name": surveyName,
		"question":    question,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// Reminder renders the threaded reminder body. The ordinal is the 1-based
// number of the reminder pass, available to templates that want to show it.
func (r *Renderer) Reminder(surveyName string, ordinal int) (string, error) {
	out, err := r.engine.ParseAndRenderString(r.reminder, liquid.Bindings{
		"survey_name": surveyName,
		"ordinal":     ordinal,
	})
	if err != nil {
		return "", fmt.Errorf("render reminder: %w", err)
	}
	return out, nil
}
