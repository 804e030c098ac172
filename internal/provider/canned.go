package provider

import (
	"context"
	"strings"
	"unicode"
)

// CannedModel is the model name reported by Canned.
const CannedModel = "canned"

// Replies produced by Canned.
const (
	CannedEmpty    = "Hello! How can I help you today?"
	CannedGreeting = "Hello! I'm your personal AI assistant. How can I help you today?"
	CannedFarewell = "Goodbye! Feel free to reach out anytime you need assistance."
	CannedQuestion = "That's a great question! I'm currently running in mock mode. " +
		"Once connected to a real LLM, I'll give you detailed answers."
	CannedHelp = "I can help you answer questions, take notes, set reminders, " +
		"and much more. What would you like to do?"
)

var (
	greetingWords   = []string{"hello", "hi", "hey"}
	farewellWords   = []string{"bye", "goodbye"}
	farewellPhrases = []string{"see you"}
	helpPhrases     = []string{"what can you do"}
)

var _ Provider = Canned{}

// Canned answers from a fixed set of keyword-triggered replies. It needs
// no network and is deterministic, which makes it the default for local
// runs and tests.
type Canned struct{}

// Complete picks a reply from the last user message. Rules are checked in
// order: greeting, farewell, question, help, then an echo of the message.
func (Canned) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return CompletionResponse{}, err
	}
	return CompletionResponse{
		Content:      cannedReply(req),
		FinishReason: FinishReasonStop,
	}, nil
}

// ModelName returns CannedModel.
func (Canned) ModelName() string { return CannedModel }

func cannedReply(req CompletionRequest) string {
	msg, ok := req.LastUserMessage()
	if !ok {
		return CannedEmpty
	}

	lower := strings.ToLower(msg)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	switch {
	case containsWord(words, greetingWords):
		return CannedGreeting
	case containsWord(words, farewellWords) || containsPhrase(lower, farewellPhrases):
		return CannedFarewell
	case strings.Contains(msg, "?"):
		return CannedQuestion
	case containsWord(words, []string{"help"}) || containsPhrase(lower, helpPhrases):
		return CannedHelp
	}
	return "I understand you said: '" + msg + "'. I'm currently in mock mode, " +
		"but I'm ready to do more once connected to a real AI model."
}

func containsWord(words, targets []string) bool {
	for _, w := range words {
		for _, t := range targets {
			if w == t {
				return true
			}
		}
	}
	return false
}

func containsPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
