// Package testdata provides recorded tick scripts for integration tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gocv.io/x/gocv"
)

//go:embed ticks/*.json
var ticksFS embed.FS

// Tick is one detector batch in parallel-array form. Repeat > 1 replays the
// batch that many times.
type Tick struct {
	Boxes       [][4]float64 `json:"boxes"`
	Labels      []string     `json:"labels"`
	Confidences []float64    `json:"confidences"`
	Repeat      int          `json:"repeat,omitempty"`
}

// Expect is the state after the whole script has run.
type Expect struct {
	Locks        []string       `json:"locks"`
	RunningCount int            `json:"running_count"`
	Remaining    map[string]int `json:"remaining"`
	Hands        int            `json:"hands"`
	Unassigned   int            `json:"unassigned"`
}

// Script is a recorded sequence of ticks with the thresholds it was
// recorded under. Zero thresholds mean the defaults.
type Script struct {
	Name               string `json:"name"`
	ConfirmationTicks  int    `json:"confirmation_ticks"`
	DisappearanceTicks int    `json:"disappearance_ticks"`
	Ticks              []Tick `json:"ticks"`
	Expect             Expect `json:"expect"`
}

// Expanded returns the ticks with repeats unrolled.
func (s *Script) Expanded() []Tick {
	var out []Tick
	for _, t := range s.Ticks {
		n := max(t.Repeat, 1)
		for range n {
			out = append(out, t)
		}
	}
	return out
}

// LoadScript loads a tick script by name, without the .json suffix.
func LoadScript(name string) (*Script, error) {
	data, err := ticksFS.ReadFile("ticks/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}

	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode script %s: %w", name, err)
	}
	if s.Name == "" {
		s.Name = name
	}
	return &s, nil
}

// ScriptNames lists the embedded scripts.
func ScriptNames() ([]string, error) {
	entries, err := ticksFS.ReadDir("ticks")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	return names, nil
}

// BlankFrames returns n black 640x480 frames for driving a mock camera.
// The caller closes them.
func BlankFrames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	return frames
}
