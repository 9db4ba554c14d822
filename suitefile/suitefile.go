// Package suitefile loads declarative suites from YAML files.
//
// A suite file is a mapping whose keys starting with test_ are cases. Each
// case is a list of steps; a step either runs the configured interpreter and
// checks its output, evaluates a named assertion, or omits the case:
//
//	name: echo
//	env:
//	  GREETING: hello
//	test_greets:
//	  - run:
//	      args: ["-c", "echo $GREETING"]
//	      stdout: ["hello"]
//	      success: true
//	test_math:
//	  - assert: {op: operator, args: [1, "<", 2]}
//	test_later:
//	  - omit: not implemented yet
//
// Optional setup and teardown step lists run around every case.
package suitefile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-harness/assertions"
)

// CasePrefix marks the keys of a suite file that are cases
const CasePrefix = "test_"

// StepKind identifies what a step does
type StepKind string

const (
	StepRun    StepKind = "run"
	StepAssert StepKind = "assert"
	StepOmit   StepKind = "omit"
)

// Suite is a parsed suite file
type Suite struct {
	Name     string
	Path     string
	Line     int
	Env      map[string]string
	Setup    []Step
	Teardown []Step
	Cases    []Case
}

// Case is one test_ entry of a suite file
type Case struct {
	Name  string
	Line  int
	Steps []Step
}

// Step is one entry of a step list
type Step struct {
	Kind   StepKind
	Line   int
	Run    *RunStep
	Assert *AssertStep
	Reason string // omit payload, may be empty
}

// RunStep spawns the interpreter and checks its streams
type RunStep struct {
	Args       []string `yaml:"args"`
	Stdin      string   `yaml:"stdin"`
	Stdout     any      `yaml:"stdout"` // []string of lines, pattern string, or nil
	Stderr     any      `yaml:"stderr"`
	ExitStatus *int     `yaml:"exit_status"`
	Success    bool     `yaml:"success"`
	Message    string   `yaml:"message"`
}

// AssertStep evaluates one named assertion
type AssertStep struct {
	Op      string `yaml:"op"`
	Args    []any  `yaml:"args"`
	Message string `yaml:"message"`
}

// Origin renders the location of a line in the suite file
func (s *Suite) Origin(line int) string {
	return fmt.Sprintf("%s:%d", s.Path, line)
}

// ParseFile reads and parses a suite file
func ParseFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data against the suite schema and decodes it.
// path is used for the default suite name and for failure origins.
func Parse(path string, data []byte) (*Suite, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%s: suite file is empty", path)
	}
	if err := validate(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	body := root.Content[0]

	s := &Suite{
		Name: defaultName(path),
		Path: path,
		Line: body.Line,
	}
	for i := 0; i+1 < len(body.Content); i += 2 {
		key, value := body.Content[i], body.Content[i+1]
		switch {
		case key.Value == "name":
			s.Name = value.Value
		case key.Value == "env":
			if err := value.Decode(&s.Env); err != nil {
				return nil, fmt.Errorf("%s: env: %w", s.Origin(value.Line), err)
			}
		case key.Value == "setup":
			steps, err := s.parseSteps(value)
			if err != nil {
				return nil, err
			}
			s.Setup = steps
		case key.Value == "teardown":
			steps, err := s.parseSteps(value)
			if err != nil {
				return nil, err
			}
			s.Teardown = steps
		case strings.HasPrefix(key.Value, CasePrefix):
			steps, err := s.parseSteps(value)
			if err != nil {
				return nil, err
			}
			s.Cases = append(s.Cases, Case{Name: key.Value, Line: key.Line, Steps: steps})
		default:
			return nil, fmt.Errorf("%s: unexpected key %q", s.Origin(key.Line), key.Value)
		}
	}
	return s, nil
}

func (s *Suite) parseSteps(list *yaml.Node) ([]Step, error) {
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s: expected a list of steps", s.Origin(list.Line))
	}
	steps := make([]Step, 0, len(list.Content))
	for _, n := range list.Content {
		step, err := s.parseStep(n)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (s *Suite) parseStep(n *yaml.Node) (Step, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return Step{}, fmt.Errorf("%s: a step has exactly one of run, assert or omit", s.Origin(n.Line))
	}
	key, value := n.Content[0], n.Content[1]
	step := Step{Kind: StepKind(key.Value), Line: n.Line}

	switch step.Kind {
	case StepRun:
		step.Run = new(RunStep)
		if err := value.Decode(step.Run); err != nil {
			return Step{}, fmt.Errorf("%s: run: %w", s.Origin(value.Line), err)
		}
	case StepAssert:
		step.Assert = new(AssertStep)
		if err := value.Decode(step.Assert); err != nil {
			return Step{}, fmt.Errorf("%s: assert: %w", s.Origin(value.Line), err)
		}
		if err := assertions.Known(step.Assert.Op, len(step.Assert.Args)); err != nil {
			return Step{}, fmt.Errorf("%s: %w", s.Origin(value.Line), err)
		}
	case StepOmit:
		if value.Tag != "!!null" {
			step.Reason = value.Value
		}
	default:
		return Step{}, fmt.Errorf("%s: unknown step %q", s.Origin(key.Line), key.Value)
	}
	return step, nil
}

// defaultName derives a suite name from its file name
func defaultName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(base, "_test")
}
