package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"github.com/naoina/toml"
	"github.com/pvmlabs/ballot/core/vm"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		id := fmt.Sprintf("%s.%s", rt.String(), field)
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, id, link)
	},
}

// Senders a step may name.
const (
	SenderOwner = "owner"
	SenderVoter = "voter"
)

// Scenario is a deployment followed by an ordered list of calls.
type Scenario struct {
	// Artifact is the contract binary, relative to the scenario file. When
	// empty the artifact of Program is built in memory.
	Artifact string
	Program  string
	// Interpreter is the interpreter type tag of every transaction.
	Interpreter string
	GasLimit    uint64
	GasPrice    uint64
	Steps       []Step
}

// Step is one call. Args equal to "@owner" or "@voter" are replaced by the
// hex address of that account. Expect is the exit code the call must end
// with, zero meaning success.
type Step struct {
	Sender string
	Method string
	Args   []string
	Expect uint64
}

var defaultScenario = Scenario{
	Program:     "ballot",
	Interpreter: "native",
	GasLimit:    1_000_000,
	GasPrice:    1,
}

var errNoSteps = errors.New("scenario has no steps")

func loadScenario(file string) (*Scenario, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := defaultScenario
	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&sc)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	if err != nil {
		return nil, err
	}
	if sc.Artifact != "" && !filepath.IsAbs(sc.Artifact) {
		sc.Artifact = filepath.Join(filepath.Dir(file), sc.Artifact)
	}
	return &sc, sc.validate()
}

func (sc *Scenario) validate() error {
	if len(sc.Steps) == 0 {
		return errNoSteps
	}
	if _, err := vm.ParseInterpreterType(sc.Interpreter); err != nil {
		return err
	}
	if sc.GasLimit == 0 {
		return errors.New("scenario gas limit is zero")
	}
	for i, step := range sc.Steps {
		sc.Steps[i].Sender = strings.ToLower(step.Sender)
		switch sc.Steps[i].Sender {
		case SenderOwner, SenderVoter:
		default:
			return fmt.Errorf("step %d: unknown sender %q", i+1, step.Sender)
		}
		if step.Method == "" {
			return fmt.Errorf("step %d: missing method", i+1)
		}
	}
	return nil
}
