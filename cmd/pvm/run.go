package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"
	"github.com/pvmlabs/ballot/contracts/ballot"
	"github.com/pvmlabs/ballot/core"
	"github.com/pvmlabs/ballot/core/vm"
	"github.com/pvmlabs/ballot/pvm"
	"github.com/pvmlabs/ballot/tracing"
	"github.com/urfave/cli/v2"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Deploy a contract on a fresh executor and run a scenario against it",
	ArgsUsage: "<scenario.toml>",
	Action:    runCmd,
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Step    Step
	Output  []byte
	Err     error
	GasUsed uint64
	Passed  bool
}

func runCmd(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected one scenario file, got %d arguments", ctx.NArg())
	}
	sc, err := loadScenario(ctx.Args().First())
	if err != nil {
		return err
	}
	var config core.Config
	if ctx.Bool(TraceFlag.Name) {
		config.Tracer = tracing.NewLogger(nil)
	}
	fake := core.NewFakeVMWithConfig(config)

	pvm.ResetProfileCounters()
	results, err := runScenario(fake, sc)
	if err != nil {
		return err
	}
	printResults(ctx.App.Writer, results)
	if metrics.Enabled() {
		loads, saves := pvm.ProfileCounters()
		log.Info("Storage profile", "loads", loads, "saves", saves)
	}

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d steps failed", failed, len(results))
	}
	log.Info("Scenario passed", "steps", len(results), "root", fake.Executor.Root())
	return nil
}

// runScenario deploys the scenario's contract from the owner account and runs
// every step in order.
func runScenario(fake *core.FakeVM, sc *Scenario) ([]StepResult, error) {
	code, err := scenarioCode(sc)
	if err != nil {
		return nil, err
	}
	itype, err := vm.ParseInterpreterType(sc.Interpreter)
	if err != nil {
		return nil, err
	}
	senders := map[string]common.Address{
		SenderOwner: fake.Account1,
		SenderVoter: fake.Account2,
	}
	newTx := func(from common.Address, to *common.Address, input []byte) *vm.Transaction {
		return &vm.Transaction{
			From:     from,
			To:       to,
			Nonce:    fake.Executor.StateDB().GetNonce(from),
			GasLimit: sc.GasLimit,
			GasPrice: uint256.NewInt(sc.GasPrice),
			Input:    input,
			IType:    itype,
		}
	}

	res, err := fake.Executor.Exec(vm.DefaultContext(), newTx(fake.Account1, nil, code))
	if err != nil {
		return nil, fmt.Errorf("deploy failed: %w", err)
	}
	created, ok := res.(*vm.CreateResult)
	if !ok {
		return nil, fmt.Errorf("deploy returned %T", res)
	}
	contract := created.Address
	log.Info("Deployed contract", "address", contract)

	results := make([]StepResult, 0, len(sc.Steps))
	for _, step := range sc.Steps {
		from := senders[step.Sender]
		args := make([]string, 0, len(step.Args)+1)
		args = append(args, step.Method)
		for _, a := range step.Args {
			args = append(args, expandArg(a, senders))
		}
		tx := newTx(from, &contract, pvm.CombineStrings(args...))
		balance := fake.Executor.StateDB().GetBalance(from).Clone()

		r := StepResult{Step: step}
		res, r.Err = fake.Executor.Exec(vm.DefaultContext(), tx)
		if res != nil {
			r.Output = res.ReturnData()
		}
		spent := new(uint256.Int).Sub(balance, fake.Executor.StateDB().GetBalance(from))
		if price := sc.GasPrice; price != 0 {
			r.GasUsed = spent.Uint64() / price
		}
		code, isExit := pvm.ExitCode(r.Err)
		switch {
		case r.Err == nil:
			r.Passed = step.Expect == 0
		case isExit:
			r.Passed = code == step.Expect
		}
		results = append(results, r)
	}
	return results, nil
}

func scenarioCode(sc *Scenario) ([]byte, error) {
	if sc.Artifact != "" {
		code, _, err := pvm.ReadArtifact(sc.Artifact)
		return code, err
	}
	return pvm.EncodeArtifact(pvm.NewArtifact(sc.Program, nil))
}

func expandArg(arg string, senders map[string]common.Address) string {
	if len(arg) > 1 && arg[0] == '@' {
		if addr, ok := senders[arg[1:]]; ok {
			return hex.EncodeToString(addr.Bytes())
		}
	}
	return arg
}

func printResults(w io.Writer, results []StepResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Sender", "Method", "Status", "Output", "Gas"})
	table.SetAutoWrapText(false)
	for i, r := range results {
		table.Append([]string{
			strconv.Itoa(i + 1),
			r.Step.Sender,
			r.Step.Method,
			status(r),
			formatOutput(r.Output),
			strconv.FormatUint(r.GasUsed, 10),
		})
	}
	table.Render()
}

func status(r StepResult) string {
	text := "ok"
	if r.Err != nil {
		text = ballot.Reason(r.Err)
	}
	if !r.Passed {
		return color.RedString("%s (want %s)", text, ballot.CodeText(r.Step.Expect))
	}
	if r.Err != nil {
		return color.YellowString("%s", text)
	}
	return color.GreenString("%s", text)
}

// formatOutput prints printable output as text and anything else as hex.
func formatOutput(out []byte) string {
	if len(out) == 0 {
		return ""
	}
	if utf8.Valid(out) {
		printable := true
		for _, r := range string(out) {
			if r < 0x20 || r == 0x7f {
				printable = false
				break
			}
		}
		if printable {
			return strconv.Quote(string(out))
		}
	}
	return hexutil.Bytes(out).String()
}
