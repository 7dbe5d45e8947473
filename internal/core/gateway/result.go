package gateway

// Status 遠端呼叫結果的種類
type Status int

const (
	// StatusOK 成功且有資料
	StatusOK Status = iota
	// StatusEmpty 成功但沒有資料
	StatusEmpty
	// StatusFailed 呼叫失敗，Err 說明原因
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result 閘道回傳的標記結果，呼叫端不需要把「沒有資料」和「呼叫失敗」混為一談。
// Failed 時 Value 可能帶有本地合成的替代值（例如暫時識別碼的行事曆項目）。
type Result[T any] struct {
	Status Status
	Value  T
	Err    error
}

// OK 成功且有資料
func OK[T any](value T) Result[T] {
	return Result[T]{Status: StatusOK, Value: value}
}

// Empty 成功但沒有資料
func Empty[T any]() Result[T] {
	return Result[T]{Status: StatusEmpty}
}

// Failed 呼叫失敗，可附帶替代值
func Failed[T any](err error, fallback T) Result[T] {
	return Result[T]{Status: StatusFailed, Value: fallback, Err: err}
}

// IsOK 成功且有資料
func (r Result[T]) IsOK() bool { return r.Status == StatusOK }

// IsEmpty 成功但沒有資料
func (r Result[T]) IsEmpty() bool { return r.Status == StatusEmpty }

// IsFailed 呼叫失敗
func (r Result[T]) IsFailed() bool { return r.Status == StatusFailed }

// Succeeded 成功（不論是否有資料）
func (r Result[T]) Succeeded() bool { return r.Status != StatusFailed }
