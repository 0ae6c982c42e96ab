package pollnet

// IHandler is implemented by the embedding application. The engine invokes it
// from inside Poll, on the polling goroutine.
type IHandler[P any] interface {
	// OnConnected fires once per accepted inbound or established outbound connection
	OnConnected(c *Conn[P])
	// OnDisconnected fires once per teardown, after the reason is recorded
	// (see Conn.LastError) and the socket is released
	OnDisconnected(c *Conn[P])
	// OnConnectFailed fires when an outbound attempt ends in an error or a
	// timeout (clients only, see Client.LastError)
	OnConnectFailed()
	// OnData receives all unconsumed bytes after a successful receive and
	// returns how many trailing bytes form an incomplete message (0 if all were
	// consumed). The slice is only valid during the call.
	OnData(c *Conn[P], data []byte) (remainder int)
	// OnSendTimeout is advisory: nothing was sent for Config.SendTimeout
	OnSendTimeout(c *Conn[P])
	// OnRecvTimeout is advisory: nothing was received for Config.RecvTimeout.
	// The handler decides whether to close the connection.
	OnRecvTimeout(c *Conn[P])
}

// BaseHandler implements every IHandler method as a no-op and consumes all
// data. Embed it to implement only the callbacks you need.
type BaseHandler[P any] struct{}

func (BaseHandler[P]) OnConnected(*Conn[P])        {}
func (BaseHandler[P]) OnDisconnected(*Conn[P])     {}
func (BaseHandler[P]) OnConnectFailed()            {}
func (BaseHandler[P]) OnData(*Conn[P], []byte) int { return 0 }
func (BaseHandler[P]) OnSendTimeout(*Conn[P])      {}
func (BaseHandler[P]) OnRecvTimeout(*Conn[P])      {}
