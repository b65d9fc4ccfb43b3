package application

import "voice-commands/internal/domain"

type rule struct {
	match   func(command string) bool
	trigger domain.Trigger
}

// Dispatcher evaluates its rules in order; the first match wins.
type Dispatcher struct {
	rules []rule
}

func NewDispatcher(triggers []domain.Trigger) *Dispatcher {
	rules := make([]rule, 0, len(triggers))
	for _, t := range triggers {
		rules = append(rules, rule{match: t.Matches, trigger: t})
	}
	return &Dispatcher{rules: rules}
}

func (d *Dispatcher) Match(command string) (domain.Trigger, bool) {
	for _, r := range d.rules {
		if r.match(command) {
			return r.trigger, true
		}
	}
	return domain.Trigger{}, false
}

func (d *Dispatcher) Phrases() []string {
	phrases := make([]string, 0, len(d.rules))
	for _, r := range d.rules {
		phrases = append(phrases, r.trigger.Phrase)
	}
	return phrases
}
