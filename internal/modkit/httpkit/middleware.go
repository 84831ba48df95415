package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"sword/internal/platform/net/middleware"
)

// Stack is an ordered middleware list, outermost first
type Stack = []func(http.Handler) http.Handler

// CommonStack is the baseline for JSON api scopes
func CommonStack() Stack {
	return Stack{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.AccessLog(middleware.AccessLogOptions{Slow: 500 * time.Millisecond}),
		middleware.CORS(middleware.CORSOptions{}),
		middleware.Compress(flate.BestSpeed),
		middleware.Heartbeat("/health"),
		middleware.StripSlashes(),
		middleware.Timeout(30 * time.Second),
	}
}

// DepositStack serves upload routes: packages are not recompressed and the
// timeout is the caller's, since uploads outlive the api budget.
// maxInFlight above zero queues as many again and turns the rest away with 429
func DepositStack(timeout time.Duration, maxInFlight int) Stack {
	stack := Stack{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.AccessLog(middleware.AccessLogOptions{Slow: 5 * time.Second}),
		middleware.CORS(middleware.CORSOptions{}),
	}
	if maxInFlight > 0 {
		stack = append(stack, middleware.ThrottleBacklog(maxInFlight, maxInFlight, time.Minute))
	}
	if timeout > 0 {
		stack = append(stack, middleware.Timeout(timeout))
	}
	return stack
}
