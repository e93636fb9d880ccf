// Package api exposes the record store over HTTP. Routes are registered on a
// chi router; every entity of the registry is reachable under /api/{entity}.
package api
