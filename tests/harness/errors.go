package harness

import (
	"fmt"

	"github.com/pvmlabs/ballot/core/vm"
)

type unexpectedResult struct {
	res vm.InterpreterResult
}

func (e *unexpectedResult) Error() string {
	return fmt.Sprintf("unexpected executor result %T", e.res)
}
