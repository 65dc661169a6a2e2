package server

import (
	"fmt"
	"net/http"
)

// Access is how much authentication a route demands.
type Access int

const (
	AccessPublic Access = iota
	// AccessOptional resolves a bearer token when one is sent but lets
	// anonymous requests through.
	AccessOptional
	AccessUser
)

type AccessRule struct {
	Method string
	Path   string
	Access Access
}

var endpointAccess = []AccessRule{
	{Method: http.MethodGet, Path: "/healthz", Access: AccessPublic},
	{Method: http.MethodPost, Path: "/api/users/register", Access: AccessPublic},
	{Method: http.MethodPost, Path: "/api/users/login", Access: AccessPublic},
	{Method: http.MethodPost, Path: "/api/users/verification-code", Access: AccessOptional},
	{Method: http.MethodPost, Path: "/api/users/verify-code", Access: AccessOptional},
	{Method: http.MethodPost, Path: "/api/users/reset-password", Access: AccessPublic},
	{Method: http.MethodPost, Path: "/api/users/change-email", Access: AccessUser},
	{Method: http.MethodGet, Path: "/api/users/profile", Access: AccessUser},
}

func accessFor(method, path string) Access {
	for _, rule := range endpointAccess {
		if rule.Method == method && rule.Path == path {
			return rule.Access
		}
	}
	panic(fmt.Sprintf("missing access rule for %s %s", method, path))
}
