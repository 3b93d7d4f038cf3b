// Package engine serves the simulators over HTTP and runs the socket server
// next to them.
//
// Handler routes by URI fragment, first hit wins:
//
//	clearData      clear every registry
//	ws/setup       set up a WS test
//	socket/setup   set up a socket test
//	socket/verify  call count of a socket test
//	setupTest      set up a WS test (older clients)
//	servlet/setup  set up a REST test
//	verifyTest     call count of a WS or REST test
//
// Any other request is executed: an XML content type with a body goes to the
// WS simulator, everything else to the REST simulator.
//
// Server wires Handler, the socket server, the health check and the metrics
// endpoint together and runs them until its context is canceled.
package engine
