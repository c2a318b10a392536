package types

// SuccessEnvelope wraps every successful API payload.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorEnvelope is the body of every failed API call. AlreadyLit repeats the
// duplicate-candle detail at the top level, where web clients read it.
type ErrorEnvelope struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Code       string `json:"code"`
	Retryable  bool   `json:"retryable,omitempty"`
	AlreadyLit bool   `json:"alreadyLit,omitempty"`
	Details    any    `json:"details,omitempty"`
}
