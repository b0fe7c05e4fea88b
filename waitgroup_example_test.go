package commander_test

import (
	"fmt"

	"github.com/b97tsk/commander"
)

func ExampleWaitGroup() {
	x := commander.NewExecutor(commander.NewTestIntegration(), nil)

	var myState struct {
		wg     commander.WaitGroup
		v1, v2 int
	}

	myState.wg.Add(2)

	commander.Add(x, x.NewAgent("worker1", nil), func(a *commander.Agent) struct{} {
		a.Ticks(2) // Heavy work #1 here.
		myState.v1 = 15
		myState.wg.Done()
		return struct{}{}
	})

	commander.Add(x, x.NewAgent("worker2", nil), func(a *commander.Agent) struct{} {
		a.Ticks(3) // Heavy work #2 here.
		myState.v2 = 27
		myState.wg.Done()
		return struct{}{}
	})

	commander.Add(x, x.NewAgent("sum", nil), func(a *commander.Agent) struct{} {
		myState.wg.Wait(a)
		fmt.Println("v1 + v2 =", myState.v1+myState.v2, "at tick", a.TickIndex())
		return struct{}{}
	})

	for x.Len() != 0 {
		x.Tick(1)
	}

	// Output:
	// v1 + v2 = 42 at tick 4
}
