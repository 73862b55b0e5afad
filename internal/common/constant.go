package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName is the alternative metadata key accepted for
// "Bearer <token>" style credentials.
const AuthorizationHeaderName = "authorization"
