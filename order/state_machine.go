package order

import (
	"fmt"
	"sync"
)

// StateTransition 状态转换
type StateTransition struct {
	From State
	To   State
}

// StateMachine 路由生命周期状态机
type StateMachine struct {
	transitions map[StateTransition]bool
	mu          sync.RWMutex
}

// NewStateMachine 创建新的状态机
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[StateTransition]bool),
	}
	sm.initializeTransitions()
	return sm
}

// initializeTransitions 初始化所有合法的状态转换
func (sm *StateMachine) initializeTransitions() {
	legalTransitions := []StateTransition{
		// 校验通过进入打分；校验失败直接终止
		{StateValidating, StateScoring},
		{StateValidating, StateFailed},

		// 打分后进入分配；无合格 venue 时失败
		{StateScoring, StateAllocating},
		{StateScoring, StateFailed},

		// 分配后进入派单
		{StateAllocating, StateDispatching},
		{StateAllocating, StateFailed},

		// 派单完成即终态；单个 venue 的失败不回退整单
		{StateDispatching, StateCompleted},

		// 终态不能转换（COMPLETED, FAILED）
	}

	for _, t := range legalTransitions {
		sm.transitions[t] = true
	}
}

// ValidateTransition 验证状态转换是否合法
func (sm *StateMachine) ValidateTransition(from, to State) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	// 相同状态允许（幂等性）
	if from == to {
		return nil
	}

	transition := StateTransition{From: from, To: to}
	if !sm.transitions[transition] {
		return fmt.Errorf("illegal state transition: %s -> %s", from, to)
	}

	return nil
}

// AllowedTransitions 返回当前状态所有合法的目标状态
func (sm *StateMachine) AllowedTransitions(current State) []State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	allowed := make([]State, 0)
	for transition := range sm.transitions {
		if transition.From == current {
			allowed = append(allowed, transition.To)
		}
	}
	return allowed
}

// IsFinalState 判断是否是终态
func (sm *StateMachine) IsFinalState(state State) bool {
	switch state {
	case StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}
