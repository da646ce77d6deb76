package session

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Stage int

const (
	Greeting Stage = iota
	EmotionProbe
	AdaptiveDialogue
	RoleSwap
	ScenarioBased
	TaskWithFeedback
	Closing
)

var stageNames = [...]string{
	Greeting:         "greeting",
	EmotionProbe:     "emotion_probe",
	AdaptiveDialogue: "adaptive_dialogue",
	RoleSwap:         "role_swap",
	ScenarioBased:    "scenario_based",
	TaskWithFeedback: "task_with_feedback",
	Closing:          "closing",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Activity is one row of the transition table. CarryEmotion stages ground
// their prompt in the emotion observed by the previous listen phase; all
// others use neutral.
type Activity struct {
	Stage        Stage
	Direction    string
	CarryEmotion bool
}

// Script is the ordered stage list. Stages run in slice order and the last
// one is terminal.
type Script []Activity

// DefaultScript is the seven-stage emotion-aware interaction.
func DefaultScript() Script {
	return Script{
		{Stage: Greeting, Direction: "Greet the user warmly and ask their name."},
		{Stage: EmotionProbe, Direction: "Ask the user to say a neutral sentence in different emotions (happy, sad, angry, neutral). Then guess the emotion and state confidence."},
		{Stage: AdaptiveDialogue, Direction: "Ask the user how their day is going. Respond based on their emotion.", CarryEmotion: true},
		{Stage: RoleSwap, Direction: "Tell the user you feel nervous or sad, and ask them to cheer you up with their voice."},
		{Stage: ScenarioBased, Direction: "Present a short scenario, like 'Imagine you lost your keys,' and ask the user to respond emotionally. Then comment on their tone."},
		{Stage: TaskWithFeedback, Direction: "Give the user a simple task, like a trivia question. If they sound frustrated, slow down and encourage them."},
		{Stage: Closing, Direction: "Thank the user, reflect on how emotions shaped the interaction, and end the session with a clear goodbye. Do not continue the conversation after this.", CarryEmotion: true},
	}
}

type scriptFile struct {
	Stages map[string]string `yaml:"stages"`
}

// LoadScript reads a YAML file of per-stage direction overrides:
//
//	stages:
//	  greeting: "Say hello and ask for their name."
//
// Only the text changes; order and emotion carry stay fixed.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (Script, error) {
	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}

	script := DefaultScript()
	index := make(map[string]int, len(script))
	for i, a := range script {
		index[a.Stage.String()] = i
	}
	for name, direction := range f.Stages {
		i, ok := index[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown stage %q", name)
		}
		if strings.TrimSpace(direction) == "" {
			return nil, fmt.Errorf("stage %q: empty direction", name)
		}
		script[i].Direction = strings.TrimSpace(direction)
	}
	return script, nil
}
