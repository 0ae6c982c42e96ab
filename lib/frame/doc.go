// Package frame implements the length-prefixed framing used on top of pollnet
// connections: a 4-byte little-endian body length followed by the body.
//
// The engine itself never frames data. Split is meant to be called from an
// OnData handler: it consumes every complete frame in the buffered bytes and
// returns the length of the trailing incomplete frame, which is exactly the
// remainder OnData has to report.
//
//	func (h *handler) OnData(c *pollnet.Conn[peer], data []byte) int {
//	    rem, err := frame.Split(data, maxBody, func(body []byte) { ... })
//	    if err != nil {
//	        c.Close(err.Error())
//	        return 0
//	    }
//	    return rem
//	}
package frame
