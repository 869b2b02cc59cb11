package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonMicDenied      ReasonCode = "mic_denied"
	ReasonMicUnavailable ReasonCode = "mic_unavailable"

	ReasonRegisterConnect ReasonCode = "register_connect"
	ReasonRegisterStatus  ReasonCode = "register_status"
	ReasonRegisterDecode  ReasonCode = "register_decode"

	ReasonSessionBusy ReasonCode = "session_busy"

	ReasonClientStart ReasonCode = "client_start"
	ReasonClientStop  ReasonCode = "client_stop"
	ReasonClientSend  ReasonCode = "client_send"

	ReasonTokenInvalid ReasonCode = "token_invalid"
	ReasonDialFailed   ReasonCode = "dial_failed"
)
