package types

// ConnectAck is the fixed acknowledgement body of POST /api/connect.
const ConnectAck = "Connected successfully"

// MaxHandshakePayload caps how much of a handshake body is kept. The rest
// is discarded, the request still succeeds.
const MaxHandshakePayload = 64 << 10

// HandlerInterface receives accepted handshakes. Errors are logged only; the
// acknowledgement is sent regardless.
type HandlerInterface interface {
	OnConnect(device *ConnectedDevice) error
}
