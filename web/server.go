package web

import (
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
)

// Role selects which route set an instance serves. A spoke carries the local
// knowledge base and the sync controls; a hub carries accounts and the row
// storage spokes sync against. RoleBoth exists so a single process can serve
// as its own hub in small setups and in tests.
type Role string

const (
	RoleSpoke Role = "spoke"
	RoleHub   Role = "hub"
	RoleBoth  Role = "both"
)

// NewServer creates and configures the RWeb server for a role.
func NewServer(address string, role Role) *rweb.Server {
	s := rweb.NewServer(rweb.ServerOptions{
		Address: address,
		Verbose: true,
	})

	s.Use(rweb.RequestInfo)  // Logs request info
	s.Use(CorsMiddleware)    // CORS headers
	s.Use(JWTAuthMiddleware) // Populates account identity from Bearer tokens

	setupRoutes(s, role)

	return s
}

// NewTestServer creates a server from explicit options, letting integration
// tests pick a dynamic port and receive a ready signal.
func NewTestServer(opts rweb.ServerOptions, role Role) *rweb.Server {
	s := rweb.NewServer(opts)

	s.Use(CorsMiddleware)
	s.Use(JWTAuthMiddleware)

	setupRoutes(s, role)

	return s
}

// Run starts the server
func Run(s *rweb.Server, address string) error {
	logger.Info("SQLCodex server starting", "address", address)
	return s.Run()
}
