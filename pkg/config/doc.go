// Package config loads the simulator configuration and its fixture files.
//
// A configuration file is YAML:
//
//	server:
//	  port: 8080
//	  maxBodySize: 10485760
//	socket:
//	  enabled: true
//	  port: 9090
//	logging:
//	  level: info
//	  format: text
//	metrics:
//	  enabled: true
//	fixtures:
//	  - fixtures/**/*.yaml
//
// Values missing from the file keep the values of Default. Environment
// variables (SIMULATOR_HTTP_PORT, SIMULATOR_SOCKET_PORT, SIMULATOR_LOG_LEVEL,
// SIMULATOR_LOG_FORMAT) override the file.
//
// Fixture files preload test records. Each file has rest, ws and socket
// lists whose entries carry the same fields as the setup parameters:
//
//	ws:
//	  - testId: order
//	    request: <order><id>*(id)*</id></order>
//	    response: <receipt><id>*(id)*</id></receipt>
//	    scanBackReferences: true
//	socket:
//	  - testId: ping
//	    request: PING
//	    response: PONG\n
//	    maxCallCount: 3
package config
