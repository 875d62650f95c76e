package order

import "testing"

func TestStateMachineLegalPath(t *testing.T) {
	sm := NewStateMachine()

	path := []State{StateValidating, StateScoring, StateAllocating, StateDispatching, StateCompleted}
	for i := 0; i < len(path)-1; i++ {
		if err := sm.ValidateTransition(path[i], path[i+1]); err != nil {
			t.Fatalf("transition %s -> %s should be legal: %v", path[i], path[i+1], err)
		}
	}
}

func TestStateMachineRejectsIllegalTransitions(t *testing.T) {
	sm := NewStateMachine()

	illegal := []StateTransition{
		{StateValidating, StateDispatching},
		{StateScoring, StateCompleted},
		{StateCompleted, StateValidating},
		{StateFailed, StateScoring},
		{StateDispatching, StateFailed}, // 派单阶段的单腿失败不改变整单结果
	}
	for _, tr := range illegal {
		if err := sm.ValidateTransition(tr.From, tr.To); err == nil {
			t.Errorf("transition %s -> %s should be illegal", tr.From, tr.To)
		}
	}
}

func TestStateMachineIdempotentSameState(t *testing.T) {
	sm := NewStateMachine()
	if err := sm.ValidateTransition(StateScoring, StateScoring); err != nil {
		t.Fatalf("same-state transition should be allowed: %v", err)
	}
}

func TestIsFinalState(t *testing.T) {
	sm := NewStateMachine()
	if !sm.IsFinalState(StateCompleted) || !sm.IsFinalState(StateFailed) {
		t.Fatal("COMPLETED and FAILED are final states")
	}
	if sm.IsFinalState(StateDispatching) {
		t.Fatal("DISPATCHING is not a final state")
	}
}
