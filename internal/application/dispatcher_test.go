package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-commands/internal/application"
	"voice-commands/internal/domain"
)

func TestDispatcher_Match(t *testing.T) {
	d := application.NewDispatcher(domain.DefaultTriggers())

	tests := []struct {
		command    string
		wantPhrase string
		wantKind   domain.ActionKind
	}{
		{command: "please play music now", wantPhrase: "play music", wantKind: domain.ActionOpenURL},
		{command: "goodbye stop please", wantPhrase: "stop", wantKind: domain.ActionStop},
		{command: "tell me a joke", wantPhrase: "tell me a joke", wantKind: domain.ActionSay},
		{command: "search video", wantPhrase: "search video", wantKind: domain.ActionSearch},
		{command: "can you find recipe", wantPhrase: "find recipe", wantKind: domain.ActionSearch},
		{command: "read book", wantPhrase: "read book", wantKind: domain.ActionSearch},
		{command: "any news today", wantPhrase: "news", wantKind: domain.ActionOpenURL},
		// priority follows table order
		{command: "play music and then stop", wantPhrase: "play music", wantKind: domain.ActionOpenURL},
		{command: "stop the news", wantPhrase: "stop", wantKind: domain.ActionStop},
		{command: "tell me a joke about news", wantPhrase: "tell me a joke", wantKind: domain.ActionSay},
		{command: "search video news", wantPhrase: "search video", wantKind: domain.ActionSearch},
		{command: "read book news", wantPhrase: "read book", wantKind: domain.ActionSearch},
		// substring containment, not word matching
		{command: "unstoppable", wantPhrase: "stop", wantKind: domain.ActionStop},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			trigger, ok := d.Match(tt.command)
			require.True(t, ok)
			assert.Equal(t, tt.wantPhrase, trigger.Phrase)
			assert.Equal(t, tt.wantKind, trigger.Kind)
		})
	}
}

func TestDispatcher_NoMatch(t *testing.T) {
	d := application.NewDispatcher(domain.DefaultTriggers())

	for _, command := range []string{"", "hello there", "play some songs", "Play Music"} {
		_, ok := d.Match(command)
		assert.False(t, ok, "command %q should not match", command)
	}
}

func TestDispatcher_Phrases(t *testing.T) {
	d := application.NewDispatcher(domain.DefaultTriggers())

	assert.Equal(t,
		[]string{"play music", "stop", "tell me a joke", "search video", "find recipe", "read book", "news"},
		d.Phrases(),
	)
}
