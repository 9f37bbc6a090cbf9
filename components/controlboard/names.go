package controlboard

// Endpoint name suffixes. A server publishes on "<local>/state:o", reads commands from
// "<local>/cmd:i" and answers on "<local>/rpc". The client's endpoints are the mirror image.
const (
	serverStateSuffix   = "/state:o"
	serverCommandSuffix = "/cmd:i"
	clientStateSuffix   = "/state:i"
	clientCommandSuffix = "/cmd:o"
	rpcSuffix           = "/rpc"
)

// ServerEndpoints returns the state, command and rpc endpoint names of a server.
func ServerEndpoints(base string) (state, command, rpc string) {
	return base + serverStateSuffix, base + serverCommandSuffix, base + rpcSuffix
}

// ClientEndpoints returns the state, command and rpc endpoint names of a client.
func ClientEndpoints(base string) (state, command, rpc string) {
	return base + clientStateSuffix, base + clientCommandSuffix, base + rpcSuffix
}
