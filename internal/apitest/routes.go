package apitest

import "github.com/jrsteele09/evcharge-client/users"

const APIPrefix = "/api"

// Route path constants, relative to APIPrefix
const (
	RouteLogin    = "/auth/login"
	RouteRegister = "/auth/register"
	RouteRefresh  = "/auth/refresh"
	RouteProfile  = "/auth/profile"

	RouteChargers      = "/chargers"
	RouteChargerSearch = "/chargers/search"
	RouteCharger       = "/chargers/{id}"

	RoutePendingHosts = "/admin/pending-hosts"
	RouteApproveHost  = "/admin/approve-host/{id}"
	RouteRejectHost   = "/admin/reject-host/{id}"
)

func (s *Server) initRoutes() {
	public := s.APIMiddleware()
	authed := s.APIMiddleware(s.RequireAuth())
	hosts := s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleHost))
	admins := s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin))

	s.RegisterRouteFunc("POST "+APIPrefix+RouteLogin, ChainMiddleware(s.LoginHandler(), public...))
	s.RegisterRouteFunc("POST "+APIPrefix+RouteRegister, ChainMiddleware(s.RegisterHandler(), public...))
	s.RegisterRouteFunc("POST "+APIPrefix+RouteRefresh, ChainMiddleware(s.RefreshHandler(), public...))
	s.RegisterRouteFunc("GET "+APIPrefix+RouteProfile, ChainMiddleware(s.ProfileHandler(), authed...))

	s.RegisterRouteFunc("GET "+APIPrefix+RouteChargers, ChainMiddleware(s.ListChargersHandler(), authed...))
	s.RegisterRouteFunc("GET "+APIPrefix+RouteChargerSearch, ChainMiddleware(s.SearchChargersHandler(), authed...))
	s.RegisterRouteFunc("GET "+APIPrefix+RouteCharger, ChainMiddleware(s.GetChargerHandler(), authed...))
	s.RegisterRouteFunc("POST "+APIPrefix+RouteChargers, ChainMiddleware(s.CreateChargerHandler(), hosts...))
	s.RegisterRouteFunc("PUT "+APIPrefix+RouteCharger, ChainMiddleware(s.UpdateChargerHandler(), hosts...))
	s.RegisterRouteFunc("DELETE "+APIPrefix+RouteCharger, ChainMiddleware(s.DeleteChargerHandler(), hosts...))

	s.RegisterRouteFunc("GET "+APIPrefix+RoutePendingHosts, ChainMiddleware(s.PendingHostsHandler(), admins...))
	s.RegisterRouteFunc("PUT "+APIPrefix+RouteApproveHost, ChainMiddleware(s.ApproveHostHandler(), admins...))
	s.RegisterRouteFunc("DELETE "+APIPrefix+RouteRejectHost, ChainMiddleware(s.RejectHostHandler(), admins...))
}
