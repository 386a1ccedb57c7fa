package test

import (
	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/protocol"
)

// HandlerLoop pumps messages between the handler and the network until the
// protocol terminates. The outcome is available via Handler.Result().
func HandlerLoop(id party.ID, h *protocol.Handler, network *Network) {
	for {
		select {
		case msg, ok := <-h.Listen():
			if !ok {
				// the channel was closed, the protocol is done executing
				<-network.Done(id)
				return
			}
			go network.Send(msg)

		case msg := <-network.Next(id):
			// validation errors are expected here, e.g. for duplicates
			_ = h.Accept(msg)
		}
	}
}
