package commander_test

import (
	"fmt"
	"strings"

	"github.com/b97tsk/commander"
)

func ExampleLock() {
	x := commander.NewExecutor(commander.NewTestIntegration(), nil)

	lock := x.MakeLock()

	var report strings.Builder

	commander.Add(x, x.NewAgent("first", nil), func(a *commander.Agent) struct{} {
		guard := a.Lock(lock)
		report.WriteString("A")
		a.Ticks(5)
		report.WriteString("B")
		guard.Release()
		a.Ticks(1)
		report.WriteString("F")
		return struct{}{}
	})

	commander.Add(x, x.NewAgent("second", nil), func(a *commander.Agent) struct{} {
		report.WriteString("C")
		a.Ticks(1)
		guard := a.Lock(lock)
		defer guard.Release()
		report.WriteString("D")
		a.Ticks(1)
		report.WriteString("E")
		return struct{}{}
	})

	for range 10 {
		report.WriteString(".")
		x.Tick(1)
	}

	fmt.Println(report.String())

	// Output:
	// .CA.....BD.FE...
}
