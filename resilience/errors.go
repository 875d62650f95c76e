package resilience

import "errors"

var (
	// ErrVenueUnavailable 熔断器打开，调用未到达 venue。
	ErrVenueUnavailable = errors.New("venue unavailable: circuit breaker open")
	// ErrDispatchTimeout 单次派单超过硬超时。
	ErrDispatchTimeout = errors.New("dispatch timeout")
	// ErrDispatchFailure 重试耗尽后派单仍失败。
	ErrDispatchFailure = errors.New("dispatch failure")
)
